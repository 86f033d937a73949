package storage

import (
	"context"
	"testing"

	"github.com/kimmiai/kimmi/model"
)

func TestInMemoryStoreOrder(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		if err := store.Append(ctx, model.UserMessage(content)); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	loaded, err := store.LoadContext(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(loaded))
	}
	if loaded[0].Content != "one" || loaded[2].Content != "three" {
		t.Errorf("messages out of order: %+v", loaded)
	}
}

func TestInMemoryStoreLoadReturnsCopy(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.Append(ctx, model.UserMessage("original")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	loaded, _ := store.LoadContext(ctx)
	loaded[0].Content = "mutated"

	reloaded, _ := store.LoadContext(ctx)
	if reloaded[0].Content != "original" {
		t.Error("mutating a loaded slice must not affect the store")
	}
}

func TestInMemoryStoreToolHistory(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.RecordToolCall(ctx, "sequential_thinking", map[string]any{"step": "plan"}, "recorded"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	history, err := store.ToolHistory(ctx)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 1 || history[0].Tool != "sequential_thinking" {
		t.Errorf("unexpected history: %+v", history)
	}
}
