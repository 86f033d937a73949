package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kimmiai/kimmi/model"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	store, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	ctx := context.Background()

	messages := []model.Message{
		model.UserMessage("first"),
		model.AssistantMessage("second"),
		model.UserMessage("third"),
	}
	for _, msg := range messages {
		if err := store.Append(ctx, msg); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	// Reopen to prove persistence.
	reopened, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	loaded, err := reopened.LoadContext(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != len(messages) {
		t.Fatalf("expected %d messages, got %d", len(messages), len(loaded))
	}
	for i, msg := range messages {
		if loaded[i].Content != msg.Content || loaded[i].Role != msg.Role {
			t.Errorf("message %d: got %+v, want %+v", i, loaded[i], msg)
		}
	}
}

func TestFileStoreToolHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	store, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	ctx := context.Background()

	if err := store.RecordToolCall(ctx, "get_status", map[string]any{"verbose": true}, "running"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := store.RecordToolCall(ctx, "memory_bank", map[string]any{"action": "append"}, "ok"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	history, err := store.ToolHistory(ctx)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}
	if history[0].Tool != "get_status" || history[1].Tool != "memory_bank" {
		t.Errorf("history out of order: %+v", history)
	}
}

func TestFileStoreCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "memory.json")
	if _, err := OpenFileStore(path); err != nil {
		t.Fatalf("expected parent directories to be created: %v", err)
	}
}

func TestFileStorePreservesMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	store, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	ctx := context.Background()

	toolMsg := model.Message{
		Role:     model.RoleTool,
		Name:     "get_status",
		Content:  "running",
		Metadata: map[string]any{"iteration": float64(1)},
	}
	if err := store.Append(ctx, toolMsg); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	loaded, err := store.LoadContext(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded[0].Name != "get_status" {
		t.Errorf("tool name lost: %+v", loaded[0])
	}
	if loaded[0].Metadata["iteration"] != float64(1) {
		t.Errorf("metadata lost: %+v", loaded[0].Metadata)
	}
}
