// Package embed produces fixed-dimension text embeddings for chunks and queries.
package embed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/util"
)

// ErrEmbedding wraps every failure to produce embeddings.
// Embeddings are a hard dependency: callers fail the document on it.
var ErrEmbedding = errors.New("embedding service failed")

// Embedder converts text into deterministic vectors of a fixed dimension
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	Dimension() int
}

// Config holds embedding provider configuration
type Config struct {
	Provider  string // hash, openai, ollama
	Model     string
	APIKey    string
	BaseURL   string
	Dimension int
	BatchSize int
	Timeout   time.Duration
	Proxy     util.ProxyConfig
}

// ConfigFromModel converts model config into an embed.Config. An OpenAI
// key missing from cfg is taken from OPENAI_API_KEY.
func ConfigFromModel(cfg model.EmbeddingConfig, http model.HTTPConfig) Config {
	if cfg.APIKey == "" && strings.EqualFold(cfg.Provider, "openai") {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return Config{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Dimension: cfg.Dimension,
		BatchSize: cfg.BatchSize,
		Timeout:   time.Duration(cfg.Timeout) * time.Second,
		Proxy: util.ProxyConfig{
			HTTPProxy:  http.HTTPProxy,
			HTTPSProxy: http.HTTPSProxy,
			NoProxy:    http.NoProxy,
		},
	}
}

// New creates an Embedder for cfg.Provider
func New(cfg Config) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "hash":
		return NewHashEmbedder(cfg.Dimension), nil
	case "openai":
		return NewOpenAIEmbedder(cfg)
	case "ollama":
		return NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: hash, openai, ollama)", cfg.Provider)
	}
}

// batches splits texts into consecutive groups of at most size
func batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = len(texts)
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		out = append(out, texts[start:end])
	}
	return out
}

// checkDimension verifies every vector has the expected length
func checkDimension(vecs [][]float32, want int) error {
	if want <= 0 {
		return nil
	}
	for i, v := range vecs {
		if len(v) != want {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrEmbedding, i, len(v), want)
		}
	}
	return nil
}
