package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ppiankov/backcheck/internal/cache"
	"github.com/ppiankov/backcheck/internal/index"
	"github.com/sashabaranov/go-openai"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	h := NewHashEmbedder(64)
	ctx := context.Background()

	a, _ := h.Embed(ctx, "The sailor returned to Marseilles.")
	b, _ := h.Embed(ctx, "The sailor returned to Marseilles.")
	if len(a) != 64 {
		t.Fatalf("dimension = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding differs at %d", i)
		}
	}
	if sim := index.CosineSimilarity(a, b); sim < 0.999 {
		t.Errorf("self similarity = %v", sim)
	}
}

func TestHashEmbedderRelatedness(t *testing.T) {
	h := NewHashEmbedder(0)
	ctx := context.Background()
	if h.Dimension() != DefaultDimension || h.Model() != "hash-384" {
		t.Fatalf("unexpected defaults: %d %s", h.Dimension(), h.Model())
	}

	query, _ := h.Embed(ctx, "childhood poverty in the village")
	related, _ := h.Embed(ctx, "His childhood was spent in poverty, in a poor village by the sea.")
	unrelated, _ := h.Embed(ctx, "The orchestra tuned violins before the concert began.")

	if index.CosineSimilarity(query, related) <= index.CosineSimilarity(query, unrelated) {
		t.Error("related text should score above unrelated text")
	}

	empty, _ := h.Embed(ctx, "the and of")
	if sim := index.CosineSimilarity(query, empty); sim != 0 {
		t.Errorf("stopword-only text should embed to zero vector, sim=%v", sim)
	}
}

func TestHashEmbedderBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEmbedder(8).EmbedBatch(ctx, []string{"a b c"})
	if !errors.Is(err, ErrEmbedding) || !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want ErrEmbedding wrapping context.Canceled", err)
	}
}

func TestNewFactory(t *testing.T) {
	if e, err := New(Config{Provider: ""}); err != nil || e.Model() != "hash-384" {
		t.Errorf("default provider: %v %v", e, err)
	}
	if _, err := New(Config{Provider: "openai"}); err == nil {
		t.Error("expected error without API key")
	}
	if _, err := New(Config{Provider: "word2vec"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("Expected path /embeddings, got %s", r.URL.Path)
		}
		calls++

		var req struct {
			Input      []string `json:"input"`
			Model      string   `json:"model"`
			Dimensions int      `json:"dimensions"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Dimensions != 3 {
			t.Errorf("Expected dimensions 3, got %d", req.Dimensions)
		}

		// Return out of order to exercise index sorting
		resp := openai.EmbeddingResponse{Model: openai.SmallEmbedding3}
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, openai.Embedding{
				Object:    "embedding",
				Index:     i,
				Embedding: []float32{float32(len(req.Input[i])), 0, 1},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(Config{APIKey: "test-key", BaseURL: server.URL, Dimension: 3, BatchSize: 2, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder: %v", err)
	}

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 batched requests, got %d", calls)
	}
	for i, want := range []float32{1, 2, 3} {
		if vecs[i][0] != want {
			t.Errorf("vector %d = %v, want first component %v", i, vecs[i], want)
		}
	}
}

func TestOpenAIEmbedderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	e, _ := NewOpenAIEmbedder(Config{APIKey: "k", BaseURL: server.URL})
	if _, err := e.Embed(context.Background(), "x"); !errors.Is(err, ErrEmbedding) {
		t.Errorf("err = %v, want ErrEmbedding", err)
	}
}

func TestOllamaEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("Expected path /api/embed, got %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "all-minilm" {
			t.Errorf("Expected default model all-minilm, got %s", req.Model)
		}
		resp := ollamaEmbedResponse{Model: req.Model}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.1, 0.2})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e, _ := NewOllamaEmbedder(Config{BaseURL: server.URL + "/", Dimension: 2})
	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 3 || len(vecs[2]) != 2 {
		t.Errorf("unexpected vectors: %v", vecs)
	}
}

func TestOllamaEmbedderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"api error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model not found"}`))
		}},
		{"wrong dimension", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[[1,2,3]]}`))
		}},
		{"count mismatch", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[]}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()
			e, _ := NewOllamaEmbedder(Config{BaseURL: server.URL, Dimension: 2})
			if _, err := e.Embed(context.Background(), "x"); !errors.Is(err, ErrEmbedding) {
				t.Errorf("err = %v, want ErrEmbedding", err)
			}
		})
	}
}

type countingEmbedder struct {
	*HashEmbedder
	texts int
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.texts += len(texts)
	return c.HashEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(16)}
	store := cache.NewMemoryCache(time.Minute, time.Minute)
	c := NewCachedEmbedder(inner, store, 0)
	ctx := context.Background()

	first, err := c.EmbedBatch(ctx, []string{"alpha beta", "gamma delta"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	second, _ := c.EmbedBatch(ctx, []string{"gamma delta", "alpha beta", "epsilon"})

	if inner.texts != 3 {
		t.Errorf("inner embedded %d texts, want 3 (two misses then one)", inner.texts)
	}
	for i := range first[0] {
		if first[0][i] != second[1][i] || first[1][i] != second[0][i] {
			t.Fatal("cached vectors differ from computed vectors")
		}
	}
	if c.Model() != "hash-16" || c.Dimension() != 16 {
		t.Errorf("Model/Dimension not delegated: %s %d", c.Model(), c.Dimension())
	}
}
