package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name   string
		status int
		err    error
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, cause, ErrAuth},
		{"forbidden", http.StatusForbidden, cause, ErrAuth},
		{"too many requests", http.StatusTooManyRequests, cause, ErrRateLimited},
		{"gateway timeout", http.StatusGatewayTimeout, cause, ErrTimeout},
		{"bad gateway", http.StatusBadGateway, cause, ErrTransport},
		{"bad request", http.StatusBadRequest, cause, ErrBadRequest},
		{"deadline", 0, fmt.Errorf("call: %w", context.DeadlineExceeded), ErrTimeout},
		{"connection", 0, cause, ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("test", tt.status, tt.err)
			if !errors.Is(err, tt.want) {
				t.Errorf("Classify = %v, want kind %v", err, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("cause lost: %v", err)
			}
		})
	}
}

func TestClassify_CallerCancel(t *testing.T) {
	err := Classify("test", 0, fmt.Errorf("call: %w", context.Canceled))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("caller cancellation must not be retried")
	}
}

func TestIsRetryable(t *testing.T) {
	for _, kind := range []error{ErrTimeout, ErrRateLimited, ErrTransport} {
		if !IsRetryable(&ServiceError{Provider: "p", Kind: kind}) {
			t.Errorf("%v should be retryable", kind)
		}
	}
	for _, kind := range []error{ErrAuth, ErrBadRequest, ErrEmptyResponse} {
		if IsRetryable(&ServiceError{Provider: "p", Kind: kind}) {
			t.Errorf("%v should not be retryable", kind)
		}
	}
	if IsRetryable(errors.New("parse failure")) {
		t.Error("unclassified errors should not be retryable")
	}
}

func TestMockProvider_Script(t *testing.T) {
	failure := &ServiceError{Provider: "mock", Kind: ErrTimeout}
	m := NewMockProvider(MockReply{Err: failure}, MockReply{Text: "ok"})

	if _, err := m.Complete(context.Background(), CompletionRequest{Prompt: "first"}); !errors.Is(err, ErrTimeout) {
		t.Fatalf("first call: %v", err)
	}
	for i := 0; i < 2; i++ {
		resp, err := m.Complete(context.Background(), CompletionRequest{Prompt: "again"})
		if err != nil || resp.Text != "ok" {
			t.Fatalf("call %d: %v %v", i+2, resp, err)
		}
	}
	if m.Calls() != 3 || m.LastPrompt() != "again" {
		t.Errorf("Calls = %d, LastPrompt = %q", m.Calls(), m.LastPrompt())
	}

	m.SetAvailable(false)
	if m.IsAvailable(context.Background()) {
		t.Error("expected unavailable")
	}
}

func TestThrottled(t *testing.T) {
	m := NewMockProvider(MockReply{Text: "ok"})
	th := NewThrottled(m, 1, 1)
	if th.Name() != "mock" {
		t.Errorf("Name = %s", th.Name())
	}

	if _, err := th.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("first call should pass the burst: %v", err)
	}

	// The second token arrives after ~1s; a 20ms deadline cannot wait for it
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := th.Complete(ctx, CompletionRequest{})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout while throttled, got %v", err)
	}
	if m.Calls() != 1 {
		t.Errorf("throttled call reached the provider: %d calls", m.Calls())
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil || p != nil {
		t.Errorf("empty provider should disable the LLM, got %v %v", p, err)
	}
	if _, err := NewProvider(Config{Provider: "unknown"}); err == nil {
		t.Error("expected error for unknown provider")
	}

	p, err = NewProvider(Config{Provider: "ollama", Model: "llama3.1", RequestsPerSecond: 2})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if _, ok := p.(*Throttled); !ok {
		t.Errorf("expected a throttled provider, got %T", p)
	}
}
