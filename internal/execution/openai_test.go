package execution

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestEngine(t *testing.T, maxRetries int) (*OpenAIEngine, *MockchatClient) {
	ctrl := gomock.NewController(t)
	clientMock := NewMockchatClient(ctrl)

	engine := NewOpenAIEngineBuilder("gpt-4o-mini", &OpenAIEngineBuilderOptions{
		APIKey:        "test-key",
		MaxRetries:    maxRetries,
		RetryBase:     time.Millisecond,
		NewChatClient: func(apiKey, baseURL string) chatClient { return clientMock },
	}).Build()

	return engine, clientMock
}

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Model: "gpt-4o-mini-2024",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
		Usage: openai.Usage{PromptTokens: 12, CompletionTokens: 34},
	}
}

func TestOpenAIExecute(t *testing.T) {
	engine, clientMock := newTestEngine(t, 2)

	clientMock.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			require.Equal(t, "gpt-4o-mini", req.Model)
			require.Len(t, req.Messages, 2)
			require.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
			require.Equal(t, "be terse", req.Messages[0].Content)
			require.Equal(t, "analyze this", req.Messages[1].Content)
			require.InDelta(t, 0.7, req.Temperature, 0.001)
			require.Equal(t, 500, req.MaxTokens)
			require.NotNil(t, req.ResponseFormat)
			require.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)

			_, hasDeadline := ctx.Deadline()
			require.True(t, hasDeadline)
			return completion(`{"content":"ok"}`), nil
		})

	resp, err := engine.Execute(context.Background(), &ExecutionRequest{
		Role:         "synthesizer",
		SystemPrompt: "be terse",
		Message:      "analyze this",
		JSON:         true,
		Temperature:  0.7,
		MaxTokens:    500,
		Timeout:      time.Minute,
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, `{"content":"ok"}`, resp.FinalOutput)
	require.Equal(t, "gpt-4o-mini-2024", resp.ModelID)
	require.Equal(t, 12, resp.PromptTokens)
	require.Equal(t, 34, resp.CompletionTokens)
	require.Equal(t, 1, resp.Attempts)
}

func TestOpenAIExecuteRetriesTransientErrors(t *testing.T) {
	engine, clientMock := newTestEngine(t, 2)

	gomock.InOrder(
		clientMock.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).
			Return(openai.ChatCompletionResponse{}, &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}),
		clientMock.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).
			Return(openai.ChatCompletionResponse{}, &openai.RequestError{HTTPStatusCode: http.StatusBadGateway}),
		clientMock.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).
			Return(completion("third time lucky"), nil),
	)

	resp, err := engine.Execute(context.Background(), &ExecutionRequest{Role: "primary", Message: "go"})
	require.NoError(t, err)
	require.Equal(t, "third time lucky", resp.FinalOutput)
	require.Equal(t, 3, resp.Attempts)
}

func TestOpenAIExecuteGivesUpAfterMaxRetries(t *testing.T) {
	engine, clientMock := newTestEngine(t, 1)

	clientMock.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).
		Times(2).
		Return(openai.ChatCompletionResponse{}, &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable})

	_, err := engine.Execute(context.Background(), &ExecutionRequest{Role: "critic", Message: "go"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "2 attempt(s)")

	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestOpenAIExecuteDoesNotRetryClientErrors(t *testing.T) {
	engine, clientMock := newTestEngine(t, 3)

	clientMock.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).
		Times(1).
		Return(openai.ChatCompletionResponse{}, &openai.APIError{HTTPStatusCode: http.StatusUnauthorized})

	_, err := engine.Execute(context.Background(), &ExecutionRequest{Role: "critic", Message: "go"})
	require.Error(t, err)
}

func TestOpenAIExecuteEmptyResponse(t *testing.T) {
	engine, clientMock := newTestEngine(t, 0)

	clientMock.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).Return(openai.ChatCompletionResponse{}, nil)

	_, err := engine.Execute(context.Background(), &ExecutionRequest{Role: "primary", Message: "go"})
	require.ErrorIs(t, err, ErrEmptyOutput)
}

func TestOpenAIExecuteNilRequest(t *testing.T) {
	engine, _ := newTestEngine(t, 0)

	_, err := engine.Execute(context.Background(), nil)
	require.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: 429}, true},
		{"server error", &openai.APIError{HTTPStatusCode: 500}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, false},
		{"request error 503", &openai.RequestError{HTTPStatusCode: 503}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}
