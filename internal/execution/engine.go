package execution

import (
	"context"
	"errors"
	"strings"
	"time"
)

//go:generate mockgen -destination=../mocks/mock_engine.go -package=mocks github.com/spboyer/crucible/internal/execution AgentEngine

// ErrEmptyOutput is returned when a model produced no text.
var ErrEmptyOutput = errors.New("model returned an empty response")

// AgentEngine is the interface agents use to reach a language model
type AgentEngine interface {
	// Initialize sets up the engine
	Initialize(ctx context.Context) error

	// Execute sends one prompt and waits for the completion
	Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error)

	// Shutdown cleans up resources
	Shutdown(ctx context.Context) error
}

// ExecutionRequest is one model call made on behalf of an agent role
type ExecutionRequest struct {
	Role         string
	SystemPrompt string
	Message      string
	// JSON asks the model for a JSON object response.
	JSON        bool
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// ExecutionResponse represents the result of a model call
type ExecutionResponse struct {
	FinalOutput      string
	ModelID          string
	DurationMs       int64
	PromptTokens     int
	CompletionTokens int
	Attempts         int
	ErrorMsg         string
	Success          bool
}

// ContainsText checks if output contains text (case-insensitive)
func (r *ExecutionResponse) ContainsText(text string) bool {
	return strings.Contains(strings.ToLower(r.FinalOutput), strings.ToLower(text))
}
