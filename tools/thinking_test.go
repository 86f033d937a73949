package tools

import (
	"context"
	"encoding/json"
	"testing"
)

func thinkingState(t *testing.T, result ToolResult) map[string]any {
	t.Helper()
	var record map[string]any
	if err := json.Unmarshal([]byte(result.Output), &record); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	return record
}

func TestSequentialThinkingRecordsSteps(t *testing.T) {
	tool := NewSequentialThinkingTool(t.TempDir())
	ctx := context.Background()

	if _, err := tool.Execute(ctx, map[string]any{"step": "plan", "summary": "outline the approach"}); err != nil {
		t.Fatalf("first step failed: %v", err)
	}
	result, err := tool.Execute(ctx, map[string]any{"step": "verify", "summary": "check the result"})
	if err != nil {
		t.Fatalf("second step failed: %v", err)
	}

	record := thinkingState(t, result)
	steps, ok := record["steps"].([]any)
	if !ok || len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %v", record["steps"])
	}
	first, _ := steps[0].(map[string]any)
	if first["step"] != "plan" {
		t.Errorf("steps out of order: %v", steps)
	}
}

func TestSequentialThinkingReset(t *testing.T) {
	tool := NewSequentialThinkingTool(t.TempDir())
	ctx := context.Background()

	if _, err := tool.Execute(ctx, map[string]any{"step": "stale"}); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	result, err := tool.Execute(ctx, map[string]any{"reset": true, "step": "fresh"})
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	record := thinkingState(t, result)
	steps, _ := record["steps"].([]any)
	if len(steps) != 1 {
		t.Fatalf("expected 1 step after reset, got %d", len(steps))
	}
}
