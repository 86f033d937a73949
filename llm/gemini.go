// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for the Gemini API
// - System instruction handling via config

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/kimmiai/kimmi/model"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	initErr     error // Stores client initialization error for deferred reporting
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey, modelName string, maxTokens uint32, temperature float32) *GeminiProvider {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &GeminiProvider{
			model:       modelName,
			maxTokens:   int32(maxTokens),
			temperature: temperature,
			initErr:     fmt.Errorf("failed to initialize Gemini client: %w", err),
		}
	}

	return &GeminiProvider{
		client:      client,
		model:       modelName,
		maxTokens:   int32(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the current model.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Generate sends a chat completion request.
func (p *GeminiProvider) Generate(ctx context.Context, messages []model.Message) (model.ModelReply, error) {
	if p.initErr != nil {
		return model.ModelReply{}, p.initErr
	}
	if p.client == nil {
		return model.ModelReply{}, fmt.Errorf("gemini client not initialized")
	}

	contents, systemInstruction := convertToGeminiMessages(messages)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	}

	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return model.ModelReply{}, fmt.Errorf("chat completion failed: %w", err)
	}

	content := ""
	var toolCalls []model.ToolCall
	if len(response.Candidates) > 0 && response.Candidates[0].Content != nil {
		for _, part := range response.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
			if part.FunctionCall != nil {
				arguments := part.FunctionCall.Args
				if arguments == nil {
					arguments = map[string]any{}
				}
				toolCalls = append(toolCalls, model.ToolCall{
					Name:      part.FunctionCall.Name,
					Arguments: arguments,
				})
			}
		}
	}

	raw := map[string]any{
		"provider": p.Name(),
		"model":    p.model,
	}
	if response.UsageMetadata != nil {
		raw["usage"] = map[string]any{
			"prompt_tokens":     response.UsageMetadata.PromptTokenCount,
			"completion_tokens": response.UsageMetadata.CandidatesTokenCount,
			"total_tokens":      response.UsageMetadata.TotalTokenCount,
		}
	}

	return model.ModelReply{
		Message: model.Message{
			Role:    model.RoleAssistant,
			Content: content,
		},
		ToolCalls: toolCalls,
		Raw:       raw,
	}, nil
}

// convertToGeminiMessages converts normalized messages to Gemini contents.
// System messages are folded into a single system instruction; tool result
// messages become user turns.
func convertToGeminiMessages(messages []model.Message) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemInstruction string

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			if systemInstruction != "" {
				systemInstruction += "\n\n"
			}
			systemInstruction += msg.Content
		case model.RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case model.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		case model.RoleTool:
			contents = append(contents, genai.NewContentFromText(
				fmt.Sprintf("Tool %s result: %s", msg.Name, msg.Content), genai.RoleUser))
		}
	}

	return contents, systemInstruction
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
