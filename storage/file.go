// Package storage provides persistence for transcripts and tool history.
//
// Information Hiding:
// - Backend layout (JSON document, SQLite schema) hidden behind the
//   Memory port
// - Each implementation serializes its own concurrent appends

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kimmiai/kimmi/model"
)

// toolRecord is one persisted tool invocation.
type toolRecord struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Result    any            `json:"result"`
}

// fileDocument is the on-disk layout of the file store.
type fileDocument struct {
	Messages    []model.Message `json:"messages"`
	ToolHistory []toolRecord    `json:"tool_history"`
}

// FileStore implements the Memory port with a single JSON document.
// Suitable for local development; every write rewrites the document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// OpenFileStore opens or creates the JSON memory document at path,
// creating parent directories as needed.
func OpenFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create memory directory: %w", err)
		}
	}

	store := &FileStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := store.write(fileDocument{
			Messages:    []model.Message{},
			ToolHistory: []toolRecord{},
		}); err != nil {
			return nil, fmt.Errorf("failed to initialize memory file: %w", err)
		}
	}
	return store, nil
}

// LoadContext returns the stored transcript in order.
func (s *FileStore) LoadContext(ctx context.Context) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return doc.Messages, nil
}

// Append adds a message to the transcript.
func (s *FileStore) Append(ctx context.Context, message model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Messages = append(doc.Messages, message)
	return s.write(doc)
}

// RecordToolCall records one tool invocation and its result.
func (s *FileStore) RecordToolCall(ctx context.Context, tool string, arguments map[string]any, result any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.ToolHistory = append(doc.ToolHistory, toolRecord{
		Tool:      tool,
		Arguments: arguments,
		Result:    result,
	})
	return s.write(doc)
}

// ToolHistory returns all recorded tool invocations in order.
func (s *FileStore) ToolHistory(ctx context.Context) ([]model.ToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	history := make([]model.ToolResult, len(doc.ToolHistory))
	for i, record := range doc.ToolHistory {
		history[i] = model.ToolResult{
			Tool:      record.Tool,
			Arguments: record.Arguments,
			Result:    record.Result,
		}
	}
	return history, nil
}

func (s *FileStore) read() (fileDocument, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fileDocument{}, fmt.Errorf("failed to read memory file: %w", err)
	}
	if len(raw) == 0 {
		return fileDocument{}, nil
	}
	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fileDocument{}, fmt.Errorf("failed to parse memory file: %w", err)
	}
	return doc, nil
}

func (s *FileStore) write(doc fileDocument) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode memory file: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write memory file: %w", err)
	}
	return nil
}

// Verify FileStore implements the Memory port
var _ model.Memory = (*FileStore)(nil)
