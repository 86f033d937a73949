// OpenAI Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for OpenAI Chat Completions API

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kimmiai/kimmi/model"
)

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, modelName string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		model:       modelName,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Generate sends a chat completion request.
func (p *OpenAIProvider) Generate(ctx context.Context, messages []model.Message) (model.ModelReply, error) {
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

// convertToOpenAIMessages converts normalized messages to the
// OpenAI-compatible wire format.
func convertToOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		result[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
			Name:    msg.Name,
		}
	}
	return result
}

// replyFromOpenAIResponse normalizes an OpenAI-compatible completion into
// a ModelReply, decoding any tool call arguments.
func replyFromOpenAIResponse(provider string, resp openai.ChatCompletionResponse) (model.ModelReply, error) {
	if len(resp.Choices) == 0 {
		return model.ModelReply{}, fmt.Errorf("empty completion response")
	}
	choice := resp.Choices[0]

	var toolCalls []model.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		arguments := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &arguments); err != nil {
				slog.Warn("failed to parse tool call arguments",
					"provider", provider, "tool", tc.Function.Name, "error", err)
				arguments = map[string]any{}
			}
		}
		toolCalls = append(toolCalls, model.ToolCall{
			Name:      tc.Function.Name,
			Arguments: arguments,
		})
	}

	return model.ModelReply{
		Message: model.Message{
			Role:    model.RoleAssistant,
			Content: choice.Message.Content,
		},
		ToolCalls: toolCalls,
		Raw: map[string]any{
			"provider":      provider,
			"id":            resp.ID,
			"model":         resp.Model,
			"finish_reason": string(choice.FinishReason),
			"usage": map[string]any{
				"prompt_tokens":     resp.Usage.PromptTokens,
				"completion_tokens": resp.Usage.CompletionTokens,
				"total_tokens":      resp.Usage.TotalTokens,
			},
		},
	}, nil
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
