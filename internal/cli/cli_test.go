package cli

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/ppiankov/backcheck/internal/model"
)

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("BACKCHECK_RETRIEVAL_TOP_K", "7")
	t.Setenv("BACKCHECK_LLM_PROVIDER", "ollama")
	t.Setenv("BACKCHECK_HTTP_TIMEOUT", "45s")

	v := viper.New()
	v.SetEnvPrefix("BACKCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := registerDefaults(v); err != nil {
		t.Fatalf("registerDefaults: %v", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Retrieval.TopK != 7 || cfg.LLM.Provider != "ollama" || cfg.HTTP.Timeout != 45*time.Second {
		t.Errorf("env overrides not applied: top_k=%d provider=%q timeout=%v",
			cfg.Retrieval.TopK, cfg.LLM.Provider, cfg.HTTP.Timeout)
	}
	d := model.DefaultConfig()
	if cfg.Chunking != d.Chunking || cfg.Retrieval.Weights != d.Retrieval.Weights || cfg.Judge != d.Judge {
		t.Errorf("defaults changed: %+v", cfg)
	}
}

func TestLoadConfigRejectsBadPolicy(t *testing.T) {
	v := viper.New()
	if err := registerDefaults(v); err != nil {
		t.Fatal(err)
	}
	v.Set("retrieval.character_filter", "sometimes")
	if _, err := loadConfig(v); err == nil {
		t.Error("expected error for unknown character filter")
	}

	v.Set("retrieval.character_filter", "boost")
	v.Set("judge.mode", "coinflip")
	if _, err := loadConfig(v); err == nil {
		t.Error("expected error for unknown judge mode")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}
	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when the file exists")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunking.SizeWords != 1000 || cfg.Retrieval.CharacterFilter != model.FilterStrict {
		t.Errorf("round-tripped config = %+v", cfg)
	}
}

func TestParseWindow(t *testing.T) {
	w, err := parseWindow("500:100")
	if err != nil || w.size != 500 || w.overlap != 100 {
		t.Errorf("parseWindow = %+v, %v", w, err)
	}
	for _, bad := range []string{"500", "a:1", "1:b"} {
		if _, err := parseWindow(bad); err == nil {
			t.Errorf("parseWindow(%q) should fail", bad)
		}
	}
}

const sampleNovel = `Edmond Dantes was a young sailor from Marseille. Edmond loved Mercedes and
planned to marry her. Danglars envied Edmond and wrote a letter that accused
him of treason. Edmond was arrested on the day of his wedding and taken to the
Chateau d'If, where he spent fourteen years in a dark cell. In prison Edmond
met the Abbe Faria, who taught him languages, science and history. Faria told
Edmond of a treasure hidden on the island of Monte Cristo.`

func TestEvaluateCommandWritesResults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()

	novels := filepath.Join(dir, "novels")
	if err := os.MkdirAll(novels, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(novels, "monte_cristo.txt"), []byte(sampleNovel), 0o644); err != nil {
		t.Fatal(err)
	}
	test := "story_id,novel_id,backstory,character_name\n" +
		"1,monte_cristo,Edmond was a sailor from Marseille who loved Mercedes.,Edmond Dantes\n" +
		"2,lost_novel,Someone lived somewhere.,Nobody\n"
	if err := os.WriteFile(filepath.Join(dir, "test.csv"), []byte(test), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "results")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{
		"--config", filepath.Join(home, "missing.yaml"),
		"evaluate",
		"--data-dir", dir,
		"--output", out,
		"--no-store",
		"--workers", "2",
		"--include-confidence",
		"--embedding-provider", "hash",
	})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	f, err := os.Open(filepath.Join(out, "results.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 || len(recs[0]) != 4 {
		t.Fatalf("results = %v", recs)
	}
	if recs[1][0] != "1" || (recs[1][1] != "0" && recs[1][1] != "1") {
		t.Errorf("row 1 = %v", recs[1])
	}
	if recs[2][0] != "2" || recs[2][1] != "0" || !strings.Contains(recs[2][2], "unknown document") {
		t.Errorf("row 2 = %v", recs[2])
	}

	if _, err := os.Stat(filepath.Join(out, "results_details.json")); err != nil {
		t.Errorf("details not written: %v", err)
	}
	if !strings.Contains(stdout.String(), "Evaluation complete") {
		t.Errorf("summary missing:\n%s", stdout.String())
	}
}
