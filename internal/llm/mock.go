package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// MockResponse is one scripted reply. A non-nil Err is returned instead
// of a response.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider replays scripted replies in order, or computes them with a
// function, and remembers every request. It is the "mock" provider and
// the test double for the rest of findata. Once the script runs out each
// call fails with ErrProviderUnavailable.
type MockProvider struct {
	mu      sync.Mutex
	script  []MockResponse
	respond func(Request) MockResponse
	reqs    []Request
}

func NewMockProvider(script ...MockResponse) *MockProvider {
	return &MockProvider{script: script}
}

// NewMockProviderFunc answers each request with respond, which may be
// called concurrently.
func NewMockProviderFunc(respond func(Request) MockResponse) *MockProvider {
	return &MockProvider{respond: respond}
}

func (m *MockProvider) ModelID() string { return "mock" }

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := m.next(req)
	if err == nil {
		err = r.Err
	}
	if err != nil {
		return nil, err
	}
	return &Response{Content: r.Content, Usage: r.Usage, Model: "mock", StopReason: StopEnd}, nil
}

func (m *MockProvider) next(req Request) (MockResponse, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	if m.respond != nil {
		m.mu.Unlock()
		return m.respond(req), nil
	}
	defer m.mu.Unlock()
	if len(m.script) == 0 {
		return MockResponse{}, &ErrProviderUnavailable{Err: errors.New("mock: no scripted response left")}
	}
	r := m.script[0]
	m.script = m.script[1:]
	return r, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reqs)
}

// Requests returns the requests seen so far.
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.reqs...)
}
