package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/backcheck/internal/cache"
	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/text"
	"github.com/ppiankov/backcheck/internal/util"
	"github.com/ppiankov/backcheck/internal/worker"
)

var (
	// ErrDisallowed is returned when robots.txt forbids the download
	ErrDisallowed = errors.New("disallowed by robots.txt")
	// ErrTooLarge is returned when a body exceeds the configured size cap
	ErrTooLarge = errors.New("response body too large")
)

const fetchAttempts = 3

// fetchSleepFunc is replaced in tests to skip backoff
var fetchSleepFunc = time.Sleep

// FetcherOptions configures novel downloads
type FetcherOptions struct {
	HTTP     model.HTTPConfig
	Cache    cache.Cache     // optional; stores reduced text per URL
	CacheTTL time.Duration   // zero means the cache default
	Limiter  *worker.Limiter // optional per-host throttle
	Logger   *slog.Logger
}

// Fetcher downloads novels over HTTP and reduces HTML pages to prose
type Fetcher struct {
	httpClient    *http.Client
	robots        *util.RobotsChecker
	limiter       *worker.Limiter
	cache         cache.Cache
	cacheTTL      time.Duration
	userAgent     string
	maxBytes      int64
	respectRobots bool
	logger        *slog.Logger
}

// NewFetcher creates a Fetcher from HTTP settings
func NewFetcher(opts FetcherOptions) *Fetcher {
	cfg := opts.HTTP
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = model.DefaultConfig().HTTP.MaxBodyBytes
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 5
	}
	maxRedirects := cfg.MaxRedirects

	client := util.NewHTTPClient(cfg.Timeout, util.ProxyConfig{
		HTTPProxy:  cfg.HTTPProxy,
		HTTPSProxy: cfg.HTTPSProxy,
		NoProxy:    cfg.NoProxy,
	})
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = worker.NewLimiter(1, 1)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		httpClient:    client,
		robots:        util.NewRobotsChecker(client, cfg.UserAgent),
		limiter:       limiter,
		cache:         opts.Cache,
		cacheTTL:      opts.CacheTTL,
		userAgent:     cfg.UserAgent,
		maxBytes:      cfg.MaxBodyBytes,
		respectRobots: cfg.RespectRobots,
		logger:        logger,
	}
}

// FetchResult is a downloaded novel reduced to plain text
type FetchResult struct {
	URL         string    `json:"url"`
	FinalURL    string    `json:"final_url"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	ContentType string    `json:"content_type"`
	StatusCode  int       `json:"status_code"`
	Bytes       int       `json:"bytes"`
	FetchedAt   time.Time `json:"fetched_at"`
	FromCache   bool      `json:"-"`
}

// FetchWithRetry fetches rawURL, retrying transient failures with backoff.
// Cached results are returned without touching the network.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.Key("fetch", rawURL)
	if f.cache != nil {
		if data, ok := f.cache.Get(key); ok {
			var cached FetchResult
			if err := json.Unmarshal(data, &cached); err == nil {
				cached.FromCache = true
				return &cached, nil
			}
		}
	}

	if f.respectRobots {
		decision, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !decision.Allowed {
			return nil, fmt.Errorf("%w: %s (%s)", ErrDisallowed, rawURL, decision.Reason)
		}
		if err := f.limiter.WaitWithDelay(ctx, rawURL, decision.CrawlDelay); err != nil {
			return nil, err
		}
	} else if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}

	var (
		result *FetchResult
		err    error
	)
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		result, err = f.Fetch(ctx, rawURL)
		if err == nil || !isRetryableFetchError(err) || attempt == fetchAttempts {
			break
		}
		backoff := time.Duration(attempt) * time.Second
		f.logger.Warn("fetch failed, retrying", "url", rawURL, "attempt", attempt, "backoff", backoff, "error", err)
		fetchSleepFunc(backoff)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if data, mErr := json.Marshal(result); mErr == nil {
			if sErr := f.cache.Set(key, data, f.cacheTTL); sErr != nil {
				f.logger.Debug("fetch cache write failed", "url", rawURL, "error", sErr)
			}
		}
	}
	return result, nil
}

// Fetch performs a single download of rawURL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/plain,text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	prose := string(body)
	if isHTML(contentType, body) {
		prose, err = text.VisibleText(prose)
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
	} else {
		prose = text.Clean(text.StripGutenberg(prose))
	}

	finalURL := resp.Request.URL.String()
	return &FetchResult{
		URL:         rawURL,
		FinalURL:    finalURL,
		Title:       extractTitle(finalURL),
		Text:        prose,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
		Bytes:       len(body),
		FetchedAt:   time.Now().UTC(),
	}, nil
}

func isHTML(contentType string, body []byte) bool {
	if contentType != "" {
		return strings.Contains(contentType, "html")
	}
	return strings.Contains(http.DetectContentType(body), "html")
}

// isRetryableFetchError reports whether a fetch error is worth another attempt
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "unexpected status: ") {
		code := strings.Fields(strings.TrimPrefix(msg, "unexpected status: "))
		if len(code) == 0 {
			return false
		}
		return code[0] == "429" || strings.HasPrefix(code[0], "5")
	}
	return strings.HasPrefix(msg, "fetch: ")
}

// extractTitle derives a human-readable title from the URL
func extractTitle(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	// De-slugify and drop the extension
	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	return last
}
