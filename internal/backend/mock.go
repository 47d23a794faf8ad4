package backend

import (
	"context"
	"sync"
)

// Mock is a scripted backend for tests. Translate pops responses in call
// order; when the script runs out it echoes the source text.
type Mock struct {
	mu sync.Mutex

	// Responses are consumed one per call. A nil entry means "echo".
	Responses []func(req Request) (Result, error)
	Calls     []Request
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Translate(_ context.Context, req Request) (Result, error) {
	m.mu.Lock()
	var next func(Request) (Result, error)
	if len(m.Responses) > 0 {
		next = m.Responses[0]
		m.Responses = m.Responses[1:]
	}
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()

	if next != nil {
		return next(req)
	}
	result := make(Result, len(req.Units))
	for _, u := range req.Units {
		result[u.ID] = u.Text
	}
	return result, nil
}
