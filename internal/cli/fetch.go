package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/backcheck/internal/cache"
	"github.com/ppiankov/backcheck/internal/dataset"
	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/pipeline"
	"github.com/ppiankov/backcheck/internal/worker"
)

var (
	fetchNovelsDir string
	fetchFromFile  string
	fetchName      string
	fetchNoCache   bool
	fetchForce     bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [url]...",
	Short: "Download novels into the novels directory",
	Long: `Fetch downloads novels over HTTP and saves them as plain text in the novels
directory. robots.txt is honored, HTML pages are reduced to their visible
text and Project Gutenberg headers are stripped.

Example:
  backcheck fetch https://www.gutenberg.org/cache/epub/1184/pg1184.txt --name monte_cristo
  backcheck fetch --from-file novels.txt --novels-dir ./data/novels`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	d := model.DefaultConfig().HTTP
	f := fetchCmd.Flags()
	f.StringVar(&fetchNovelsDir, "novels-dir", "./data/novels", "directory the novels are written to")
	f.StringVar(&fetchFromFile, "from-file", "", "read URLs from a file (one per line)")
	f.StringVar(&fetchName, "name", "", "novel ID to save as (single URL only)")
	f.BoolVar(&fetchNoCache, "no-cache", false, "disable cache (force fresh fetch)")
	f.BoolVar(&fetchForce, "force", false, "overwrite existing novel files")
	f.Duration("timeout", d.Timeout, "per-request timeout")
	f.String("ua", d.UserAgent, "HTTP User-Agent")
	f.Int64("max-bytes", d.MaxBodyBytes, "max response bytes to read")
	f.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	f.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if err := bindFlags(v, cmd.Flags(), map[string]string{
		"timeout":     "http.timeout",
		"ua":          "http.user_agent",
		"max-bytes":   "http.max_body_bytes",
		"http-proxy":  "http.http_proxy",
		"https-proxy": "http.https_proxy",
	}); err != nil {
		return err
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	urls := append([]string(nil), args...)
	if fetchFromFile != "" {
		listed, err := dataset.ReadURLList(fetchFromFile)
		if err != nil {
			return err
		}
		urls = append(urls, listed...)
	}
	if len(urls) == 0 {
		return errors.New("no URLs given (pass URLs or --from-file)")
	}
	if fetchName != "" && len(urls) > 1 {
		return errors.New("--name can only be used with a single URL")
	}

	opts := pipeline.FetcherOptions{
		HTTP:    cfg.HTTP,
		Limiter: worker.NewLimiter(1, 1),
		Logger:  logger,
	}
	if cfg.Cache.Enabled && !fetchNoCache {
		opts.Cache = cache.NewMemoryDisk(cfg.Cache.MemoryTTL, filepath.Join(cfg.Cache.Dir, "fetch"), cfg.Cache.DiskTTL)
		opts.CacheTTL = cfg.Cache.DiskTTL
	}
	fetcher := pipeline.NewFetcher(opts)

	if err := os.MkdirAll(fetchNovelsDir, 0o755); err != nil {
		return fmt.Errorf("create novels directory: %w", err)
	}

	ctx := cmd.Context()
	failures := 0
	for _, u := range urls {
		res, err := fetcher.FetchWithRetry(ctx, u)
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", u, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		name := dataset.NovelFileName(res.Title)
		if fetchName != "" {
			name = dataset.NovelFileName(fetchName)
		}
		path := filepath.Join(fetchNovelsDir, name)
		if _, err := os.Stat(path); err == nil && !fetchForce {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %s already exists (use --force to overwrite)\n", u, path)
			continue
		}
		if err := os.WriteFile(path, []byte(res.Text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}

		source := "fetched"
		if res.FromCache {
			source = "cached " + time.Since(res.FetchedAt).Round(time.Second).String() + " ago"
		}
		fmt.Fprintf(os.Stderr, "✓ %s -> %s (%d bytes, %s)\n", u, path, len(res.Text), source)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d downloads failed", failures, len(urls))
	}
	return nil
}
