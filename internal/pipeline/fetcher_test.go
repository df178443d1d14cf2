package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/backcheck/internal/cache"
	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/worker"
)

func testFetcher(respectRobots bool, store cache.Cache) *Fetcher {
	return NewFetcher(FetcherOptions{
		HTTP: model.HTTPConfig{
			Timeout:       5 * time.Second,
			UserAgent:     "test-agent",
			MaxBodyBytes:  1 << 20,
			RespectRobots: respectRobots,
		},
		Cache:   store,
		Limiter: worker.NewLimiter(100, 10),
		Logger:  quietLogger(),
	})
}

func noSleep(t *testing.T) {
	orig := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body><p>Call me Ishmael.</p><script>x()</script></body></html>")
	}))
	defer server.Close()

	result, err := testFetcher(false, nil).FetchWithRetry(context.Background(), server.URL+"/moby-dick.html")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Text != "Call me Ishmael." {
		t.Errorf("Unexpected text: %q", result.Text)
	}
	if result.Title != "moby dick" {
		t.Errorf("Unexpected title: %q", result.Title)
	}
}

func TestFetch_PlainTextStripsGutenberg(t *testing.T) {
	body := "License header\n*** START OF THE PROJECT GUTENBERG EBOOK ***\nChapter 1.\n\nIt was a dark night.\n*** END OF THE PROJECT GUTENBERG EBOOK ***\nMore license"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprint(w, body)
	}))
	defer server.Close()

	result, err := testFetcher(false, nil).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if strings.Contains(result.Text, "License") || !strings.Contains(result.Text, "It was a dark night.") {
		t.Errorf("Unexpected text: %q", result.Text)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()
	noSleep(t)

	result, err := testFetcher(false, nil).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if result.Text != "OK" {
		t.Errorf("Unexpected text: %q", result.Text)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	noSleep(t)

	_, err := testFetcher(false, nil).FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("404 should not be retried, got %d attempts", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	noSleep(t)

	if _, err := testFetcher(false, nil).FetchWithRetry(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_RobotsDisallow(t *testing.T) {
	var pages atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		pages.Add(1)
		_, _ = fmt.Fprint(w, "secret")
	}))
	defer server.Close()

	_, err := testFetcher(true, nil).FetchWithRetry(context.Background(), server.URL+"/private/novel.txt")
	if !errors.Is(err, ErrDisallowed) {
		t.Fatalf("err = %v, want ErrDisallowed", err)
	}
	if pages.Load() != 0 {
		t.Error("disallowed page was downloaded")
	}
}

func TestFetch_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("a", 2048))
	}))
	defer server.Close()

	f := NewFetcher(FetcherOptions{
		HTTP:    model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test-agent", MaxBodyBytes: 1024},
		Limiter: worker.NewLimiter(100, 10),
		Logger:  quietLogger(),
	})
	if _, err := f.Fetch(context.Background(), server.URL); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestFetchWithRetry_Cached(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "A quiet chapter.")
	}))
	defer server.Close()

	f := testFetcher(false, cache.NewMemoryCache(time.Minute, time.Minute))
	first, err := f.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := f.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if first.FromCache || !second.FromCache {
		t.Errorf("FromCache = %v/%v, want false/true", first.FromCache, second.FromCache)
	}
	if second.Text != first.Text || attempts.Load() != 1 {
		t.Errorf("cached fetch hit the server (%d requests)", attempts.Load())
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		err       string
		retryable bool
	}{
		{"unexpected status: 503 Service Unavailable", true},
		{"unexpected status: 500 Internal Server Error", true},
		{"unexpected status: 429 Too Many Requests", true},
		{"unexpected status: 404 Not Found", false},
		{"unexpected status: 403 Forbidden", false},
		{"fetch: connection refused", true},
		{"create request: invalid URL", false},
		{"read body: unexpected EOF", false},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			if got := isRetryableFetchError(errors.New(tt.err)); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%q) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
	if isRetryableFetchError(nil) {
		t.Error("Expected nil error to not be retryable")
	}
}

func TestExtractTitle(t *testing.T) {
	tests := map[string]string{
		"https://www.gutenberg.org/files/1184/the-count-of-monte-cristo.txt": "the count of monte cristo",
		"https://example.com/":               "example.com",
		"https://example.com/les_miserables": "les miserables",
	}
	for in, want := range tests {
		if got := extractTitle(in); got != want {
			t.Errorf("extractTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
