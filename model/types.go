// Package model provides domain types shared across packages.
//
// Messages, model replies, and turns are value types: once constructed
// they are appended to transcripts and never mutated.
package model

// Message roles used throughout a conversation transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single chat turn passed to or from the model.
type Message struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Name     string         `json:"name,omitempty"`     // Tool identity for role "tool"
	Metadata map[string]any `json:"metadata,omitempty"` // Open key/value mapping
}

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolCall is a single tool invocation requested by the model.
// Produced by the model, never by the user.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ModelReply is the normalized response from one language model invocation.
// Raw holds opaque provider request/response metadata kept for audit; the
// core never interprets it.
type ModelReply struct {
	Message   Message        `json:"message"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
	Raw       map[string]any `json:"raw,omitempty"`
}

// ToolResult records one tool invocation made during a turn.
// For content pipeline turns, Tool holds the stage name and Result the
// stage output.
type ToolResult struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    any            `json:"result"`
}

// Turn is the outcome of one completed orchestration run. Immutable and
// persisted; never mutated after creation.
type Turn struct {
	UserMessage      Message        `json:"user_message"`
	AssistantMessage Message        `json:"assistant_message"`
	ToolResults      []ToolResult   `json:"tool_results"`
	RawModelReply    map[string]any `json:"raw_model_reply"`

	// Exhausted is set when the reasoning loop hit its iteration budget
	// while the model was still requesting tools. The turn is still a
	// valid result, not a failure.
	Exhausted bool `json:"exhausted,omitempty"`
}
