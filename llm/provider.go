// Package llm provides language model provider implementations.
//
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling

package llm

import (
	"context"

	"github.com/kimmiai/kimmi/model"
)

// Provider is the concrete interface backing the core's LanguageModel
// port. Implementations convert between the normalized message model and
// their SDK's wire format.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Generate sends the ordered message list and returns one normalized
	// reply, including any tool calls the model requested.
	Generate(ctx context.Context, messages []model.Message) (model.ModelReply, error)
}
