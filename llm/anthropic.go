// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Anthropic Messages API

package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kimmiai/kimmi/model"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, modelName string, maxTokens uint32, temperature float32) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:      client,
		model:       modelName,
		maxTokens:   int64(maxTokens),
		temperature: float64(temperature),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Generate sends a chat completion request.
func (p *AnthropicProvider) Generate(ctx context.Context, messages []model.Message) (model.ModelReply, error) {
	anthropicMessages, systemPrompt := convertToAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Messages:    anthropicMessages,
		Temperature: anthropic.Float(p.temperature),
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return model.ModelReply{}, fmt.Errorf("chat completion failed: %w", err)
	}

	content := ""
	var toolCalls []model.ToolCall
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += variant.Text
		case anthropic.ToolUseBlock:
			arguments := map[string]any{}
			if err := json.Unmarshal(variant.Input, &arguments); err != nil {
				arguments = map[string]any{}
			}
			toolCalls = append(toolCalls, model.ToolCall{
				Name:      variant.Name,
				Arguments: arguments,
			})
		}
	}

	return model.ModelReply{
		Message: model.Message{
			Role:    model.RoleAssistant,
			Content: content,
		},
		ToolCalls: toolCalls,
		Raw: map[string]any{
			"provider":    p.Name(),
			"id":          message.ID,
			"model":       string(message.Model),
			"stop_reason": string(message.StopReason),
			"usage": map[string]any{
				"prompt_tokens":     message.Usage.InputTokens,
				"completion_tokens": message.Usage.OutputTokens,
				"total_tokens":      message.Usage.InputTokens + message.Usage.OutputTokens,
			},
		},
	}, nil
}

// convertToAnthropicMessages converts normalized messages to the Anthropic
// format. The system message is extracted and returned separately; tool
// result messages become user turns since no tool_use IDs are tracked.
func convertToAnthropicMessages(messages []model.Message) ([]anthropic.MessageParam, string) {
	var anthropicMessages []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
		case model.RoleUser:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case model.RoleAssistant:
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case model.RoleTool:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(fmt.Sprintf("Tool %s result: %s", msg.Name, msg.Content)),
			))
		}
	}

	return anthropicMessages, systemPrompt
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
