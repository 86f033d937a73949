package llm

import (
	"strings"
	"testing"

	"github.com/kimmiai/kimmi/model"
)

func sampleConversation() []model.Message {
	return []model.Message{
		model.SystemMessage("be concise"),
		model.UserMessage("hello"),
		model.AssistantMessage("hi"),
		{Role: model.RoleTool, Name: "get_status", Content: "running"},
		model.SystemMessage("respond with valid JSON"),
	}
}

func TestConvertToOpenAIMessages(t *testing.T) {
	converted := convertToOpenAIMessages(sampleConversation())
	if len(converted) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(converted))
	}
	if converted[0].Role != "system" || converted[0].Content != "be concise" {
		t.Errorf("unexpected first message: %+v", converted[0])
	}
	if converted[3].Role != "tool" || converted[3].Name != "get_status" {
		t.Errorf("tool identity lost: %+v", converted[3])
	}
	// Mid-conversation corrective system messages keep their position.
	if converted[4].Role != "system" {
		t.Errorf("corrective message lost its role: %+v", converted[4])
	}
}

func TestConvertToAnthropicMessages(t *testing.T) {
	converted, systemPrompt := convertToAnthropicMessages(sampleConversation())

	// Both system messages fold into the system prompt.
	if !strings.Contains(systemPrompt, "be concise") || !strings.Contains(systemPrompt, "valid JSON") {
		t.Errorf("system messages not folded: %q", systemPrompt)
	}
	// user, assistant, and the tool result as a user turn remain.
	if len(converted) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(converted))
	}
}

func TestConvertToGeminiMessages(t *testing.T) {
	contents, systemInstruction := convertToGeminiMessages(sampleConversation())

	if !strings.Contains(systemInstruction, "be concise") || !strings.Contains(systemInstruction, "valid JSON") {
		t.Errorf("system messages not folded: %q", systemInstruction)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
}
