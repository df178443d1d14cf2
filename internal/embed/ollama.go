package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/backcheck/internal/util"
)

// OllamaEmbedder calls a local Ollama server's /api/embed endpoint
type OllamaEmbedder struct {
	baseURL    string
	model      string
	dim        int
	batchSize  int
	httpClient *http.Client
}

var _ Embedder = (*OllamaEmbedder)(nil)

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaEmbedder creates an embedder; all-minilm (384 dims) by default
func NewOllamaEmbedder(cfg Config) (*OllamaEmbedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "all-minilm"
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = DefaultDimension
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &OllamaEmbedder{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		dim:        dim,
		batchSize:  batchSize,
		httpClient: util.NewHTTPClient(timeout, cfg.Proxy),
	}, nil
}

// Embed embeds a single text
func (e *OllamaEmbedder) Embed(ctx context.Context, s string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{s})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in request-sized batches
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, e.batchSize) {
		vecs, err := e.request(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OllamaEmbedder) request(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama request: %w", ErrEmbedding, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrEmbedding, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%w: ollama error (HTTP %d): %s", ErrEmbedding, resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("%w: ollama HTTP %d", ErrEmbedding, resp.StatusCode)
	}

	var result ollamaEmbedResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrEmbedding, err)
	}
	if len(result.Embeddings) != len(batch) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmbedding, len(result.Embeddings), len(batch))
	}
	if err := checkDimension(result.Embeddings, e.dim); err != nil {
		return nil, err
	}
	return result.Embeddings, nil
}

// Model returns the embedding model name
func (e *OllamaEmbedder) Model() string {
	return e.model
}

// Dimension returns the expected vector size
func (e *OllamaEmbedder) Dimension() int {
	return e.dim
}
