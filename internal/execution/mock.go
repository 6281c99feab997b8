package execution

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Responder scripts the output of a MockEngine for one role. call counts
// from 1 for each role.
type Responder func(req *ExecutionRequest, call int) (string, error)

// MockEngine is a scripted implementation for testing and offline runs.
// Roles without a responder get a canned echo of the request.
type MockEngine struct {
	modelID string

	mu         sync.Mutex
	responders map[string]Responder
	calls      map[string]int
	requests   []ExecutionRequest
}

// NewMockEngine creates a new mock engine
func NewMockEngine(modelID string) *MockEngine {
	return &MockEngine{
		modelID:    modelID,
		responders: map[string]Responder{},
		calls:      map[string]int{},
	}
}

// On scripts the responses for role.
func (m *MockEngine) On(role string, r Responder) *MockEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responders[role] = r
	return m
}

// Calls returns how many requests role has made.
func (m *MockEngine) Calls(role string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[role]
}

// Requests returns a copy of every request received, in arrival order.
func (m *MockEngine) Requests() []ExecutionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutionRequest(nil), m.requests...)
}

func (m *MockEngine) Initialize(ctx context.Context) error {
	return nil
}

func (m *MockEngine) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to MockEngine.Execute")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	m.mu.Lock()
	m.calls[req.Role]++
	call := m.calls[req.Role]
	m.requests = append(m.requests, *req)
	responder := m.responders[req.Role]
	m.mu.Unlock()

	var output string
	if responder != nil {
		out, err := responder(req, call)
		if err != nil {
			return nil, err
		}
		output = out
	} else {
		output = fmt.Sprintf("Mock %s response #%d for: %s", req.Role, call, firstLine(req.Message))
	}

	if output == "" {
		return nil, fmt.Errorf("%s: %w", req.Role, ErrEmptyOutput)
	}

	return &ExecutionResponse{
		FinalOutput: output,
		ModelID:     m.modelID,
		DurationMs:  time.Since(start).Milliseconds(),
		Attempts:    1,
		Success:     true,
	}, nil
}

func (m *MockEngine) Shutdown(ctx context.Context) error {
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
