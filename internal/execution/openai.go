package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultRetryBase = 500 * time.Millisecond
)

// OpenAIEngine calls an OpenAI-compatible chat completions API
type OpenAIEngine struct {
	defaultModelID string
	client         chatClient
	maxRetries     int
	retryBase      time.Duration
}

// OpenAIEngineBuilder builds an OpenAIEngine with options
type OpenAIEngineBuilder struct {
	engine *OpenAIEngine
}

type OpenAIEngineBuilderOptions struct {
	APIKey  string
	BaseURL string

	// MaxRetries is the number of extra attempts after a rate limit or
	// server error.
	MaxRetries int

	// RetryBase is the first backoff delay. Defaults to 500ms.
	RetryBase time.Duration

	NewChatClient func(apiKey, baseURL string) chatClient
}

// NewOpenAIEngineBuilder creates a builder for OpenAIEngine
//   - defaultModelID - used for every request.
func NewOpenAIEngineBuilder(defaultModelID string, options *OpenAIEngineBuilderOptions) *OpenAIEngineBuilder {
	if options == nil {
		options = &OpenAIEngineBuilderOptions{}
	}

	newClient := newChatClient
	if options.NewChatClient != nil {
		newClient = options.NewChatClient
	}

	engine := &OpenAIEngine{
		defaultModelID: defaultModelID,
		client:         newClient(options.APIKey, options.BaseURL),
		maxRetries:     options.MaxRetries,
		retryBase:      options.RetryBase,
	}
	if engine.retryBase <= 0 {
		engine.retryBase = defaultRetryBase
	}
	if engine.maxRetries < 0 {
		engine.maxRetries = 0
	}
	return &OpenAIEngineBuilder{engine: engine}
}

func (b *OpenAIEngineBuilder) Build() *OpenAIEngine {
	return b.engine
}

// Initialize is a no-op; the HTTP client connects lazily.
func (e *OpenAIEngine) Initialize(ctx context.Context) error {
	return ctx.Err()
}

// Execute sends the request as a system plus user chat completion.
// Rate limits and server errors are retried with exponential backoff.
func (e *OpenAIEngine) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to OpenAIEngine.Execute")
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       e.defaultModelID,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Message},
		},
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	attempts := 0
	backoff := retry.WithMaxRetries(uint64(e.maxRetries), retry.NewExponential(e.retryBase))

	resp, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		resp, err := e.client.CreateChatCompletion(callCtx, chatReq)
		if err != nil && isTransient(err) {
			slog.Debug("Model call failed, retrying", "role", req.Role, "attempt", attempts, "error", err)
			return resp, retry.RetryableError(err)
		}
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s model call failed after %d attempt(s): %w", req.Role, attempts, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%s: %w", req.Role, ErrEmptyOutput)
	}

	modelID := resp.Model
	if modelID == "" {
		modelID = e.defaultModelID
	}

	return &ExecutionResponse{
		FinalOutput:      resp.Choices[0].Message.Content,
		ModelID:          modelID,
		DurationMs:       time.Since(start).Milliseconds(),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Attempts:         attempts,
		Success:          true,
	}, nil
}

// Shutdown releases nothing; the engine holds no long-lived resources.
func (e *OpenAIEngine) Shutdown(ctx context.Context) error {
	return nil
}

// isTransient reports whether err is worth retrying: rate limits, server
// errors and per-attempt timeouts.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return errors.Is(err, context.DeadlineExceeded)
}
