// Port interfaces consumed by the orchestration core.
//
// Information Hiding:
// - Provider SDKs, tool implementations, and storage backends stay behind
//   these interfaces
// - The core depends only on this package, never on a concrete collaborator

package model

import "context"

// LanguageModel produces one normalized reply for an ordered message list.
// Transport and provider errors surface as returned errors; the core treats
// them as fatal.
type LanguageModel interface {
	Generate(ctx context.Context, messages []Message) (ModelReply, error)
}

// ToolRunner executes a named tool with an argument mapping.
// An unknown tool name or execution failure is returned as an error. A
// runner may instead choose to encode tool-level failures in the result
// payload, in which case the reasoning loop treats it as an ordinary result.
type ToolRunner interface {
	Execute(ctx context.Context, name string, arguments map[string]any) (any, error)
}

// Memory persists conversation history and tool invocations. Writes are
// append-only and order-preserving within a turn; implementations are
// responsible for serializing concurrent appends across turns.
type Memory interface {
	// LoadContext returns the prior transcript in order.
	LoadContext(ctx context.Context) ([]Message, error)

	// Append adds a message to the transcript.
	Append(ctx context.Context, message Message) error

	// RecordToolCall records one tool invocation and its result.
	RecordToolCall(ctx context.Context, tool string, arguments map[string]any, result any) error
}
