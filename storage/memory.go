// In-memory Memory port implementation.
//
// Suitable for testing and ephemeral sessions; data is lost when the
// process terminates.

package storage

import (
	"context"
	"sync"

	"github.com/kimmiai/kimmi/model"
)

// InMemoryStore implements the Memory port with in-process slices.
type InMemoryStore struct {
	mu       sync.RWMutex
	messages []model.Message
	history  []model.ToolResult
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// LoadContext returns a copy of the stored transcript.
func (s *InMemoryStore) LoadContext(ctx context.Context) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]model.Message, len(s.messages))
	copy(copied, s.messages)
	return copied, nil
}

// Append adds a message to the transcript.
func (s *InMemoryStore) Append(ctx context.Context, message model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, message)
	return nil
}

// RecordToolCall records one tool invocation and its result.
func (s *InMemoryStore) RecordToolCall(ctx context.Context, tool string, arguments map[string]any, result any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, model.ToolResult{
		Tool:      tool,
		Arguments: arguments,
		Result:    result,
	})
	return nil
}

// ToolHistory returns a copy of all recorded tool invocations in order.
func (s *InMemoryStore) ToolHistory(ctx context.Context) ([]model.ToolResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]model.ToolResult, len(s.history))
	copy(copied, s.history)
	return copied, nil
}

// Verify InMemoryStore implements the Memory port
var _ model.Memory = (*InMemoryStore)(nil)
