package execution

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

//go:generate mockgen -destination=chat_client_mock_test.go -package=execution -source=openai_client_wrappers.go chatClient

// chatClient is just an interface over [*openai.Client]
type chatClient interface {
	// CreateChatCompletion maps to [openai.Client.CreateChatCompletion]
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func newChatClient(apiKey, baseURL string) chatClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}
