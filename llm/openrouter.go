// OpenRouter Provider implementation using go-openai library.
//
// Information Hiding:
// - Uses the OpenAI-compatible API with the OpenRouter base URL
// - Tool call argument decoding hidden from callers

package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kimmiai/kimmi/model"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider implements the Provider interface for OpenRouter.
type OpenRouterProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenRouterProvider creates a new OpenRouter provider.
func NewOpenRouterProvider(apiKey, modelName string, maxTokens uint32, temperature float32) *OpenRouterProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = openRouterBaseURL

	return &OpenRouterProvider{
		client:      openai.NewClientWithConfig(config),
		model:       modelName,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *OpenRouterProvider) Name() string {
	return "openrouter"
}

// Model returns the current model.
func (p *OpenRouterProvider) Model() string {
	return p.model
}

// Generate sends a chat completion request.
func (p *OpenRouterProvider) Generate(ctx context.Context, messages []model.Message) (model.ModelReply, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    convertToOpenAIMessages(messages),
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return model.ModelReply{}, fmt.Errorf("chat completion failed: %w", err)
	}

	return replyFromOpenAIResponse(p.Name(), resp)
}

// Verify OpenRouterProvider implements Provider
var _ Provider = (*OpenRouterProvider)(nil)
