package llm

import (
	"context"
	"sync"
)

// MockReply is one scripted outcome
type MockReply struct {
	Text string
	Err  error
}

// MockProvider replays scripted replies in order; the last reply repeats.
// Safe for concurrent use.
type MockProvider struct {
	mu        sync.Mutex
	replies   []MockReply
	calls     int
	prompts   []string
	available bool
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates an available mock with the given script
func NewMockProvider(replies ...MockReply) *MockProvider {
	return &MockProvider{replies: replies, available: true}
}

// SetAvailable controls IsAvailable
func (m *MockProvider) SetAvailable(ok bool) {
	m.mu.Lock()
	m.available = ok
	m.mu.Unlock()
}

// Name returns "mock"
func (m *MockProvider) Name() string {
	return "mock"
}

// IsAvailable reports the configured availability
func (m *MockProvider) IsAvailable(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// Complete returns the next scripted reply
func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.prompts = append(m.prompts, req.Prompt)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.replies) == 0 {
		return nil, &ServiceError{Provider: "mock", Kind: ErrEmptyResponse}
	}
	r := m.replies[min(m.calls, len(m.replies))-1]
	if r.Err != nil {
		return nil, r.Err
	}
	return &CompletionResponse{Text: r.Text, Model: "mock"}, nil
}

// Calls returns how many times Complete was invoked
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPrompt returns the most recent prompt, or ""
func (m *MockProvider) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}
