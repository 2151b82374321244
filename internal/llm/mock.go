package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for Client. Replies are served in order by
// Complete and Stream when no func override is set; once they run out the
// last reply repeats. Every request is recorded.
type MockClient struct {
	ProviderName string
	Replies      []string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	StreamFunc   func(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)

	mu       sync.Mutex
	requests []CompletionRequest
	next     int
}

func (m *MockClient) Name() string { return m.ProviderName }

// Requests returns a copy of the requests seen so far.
func (m *MockClient) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.requests...)
}

func (m *MockClient) record(req CompletionRequest) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.Replies) == 0 {
		return ""
	}
	i := min(m.next, len(m.Replies)-1)
	m.next++
	return m.Replies[i]
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	reply := m.record(req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	if reply == "" {
		reply = "mock response"
	}
	return &CompletionResponse{Content: reply, Model: req.Model}, nil
}

func (m *MockClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	reply := m.record(req)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	if reply == "" {
		reply = "mock stream response"
	}
	ch := make(chan StreamEvent, 2)
	ch <- StreamEvent{Type: "delta", Content: reply}
	ch <- StreamEvent{
		Type:     "done",
		Response: &CompletionResponse{Content: reply, Model: req.Model},
	}
	close(ch)
	return ch, nil
}
