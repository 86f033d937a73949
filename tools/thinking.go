// Sequential thinking tool - records reasoning checkpoints for
// observability.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const thinkingFileName = "mcp_tool_state.json"

type thinkingStep struct {
	Step      string `json:"step"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
}

type thinkingRecord struct {
	Steps     []thinkingStep `json:"steps"`
	Enabled   bool           `json:"enabled"`
	UpdatedAt string         `json:"updatedAt"`
}

// SequentialThinkingTool appends numbered reasoning checkpoints to a
// per-project ledger file.
type SequentialThinkingTool struct {
	BaseTool
	mu   sync.Mutex
	path string
}

// NewSequentialThinkingTool creates the tool with its ledger under the
// given data directory.
func NewSequentialThinkingTool(dataDir string) *SequentialThinkingTool {
	return &SequentialThinkingTool{path: filepath.Join(dataDir, thinkingFileName)}
}

// Metadata returns the tool metadata.
func (t *SequentialThinkingTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "sequential_thinking",
		Description: "Record a reasoning checkpoint in the sequential thinking ledger",
		Parameters: []ToolParameter{
			{Name: "step", ParamType: "string", Description: "Checkpoint label", Required: false},
			{Name: "summary", ParamType: "string", Description: "What this step concluded", Required: false},
			{Name: "reset", ParamType: "boolean", Description: "Clear the ledger before recording", Required: false},
		},
	}
}

// Execute updates the ledger and returns the current record as JSON.
func (t *SequentialThinkingTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.read()
	record := state["sequentialThinking"]

	if reset, _ := args["reset"].(bool); reset {
		record.Steps = nil
	}

	if step, _ := args["step"].(string); step != "" {
		summary, _ := args["summary"].(string)
		record.Steps = append(record.Steps, thinkingStep{
			Step:      step,
			Summary:   summary,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}

	record.Enabled = true
	if enabled, ok := args["enabled"].(bool); ok {
		record.Enabled = enabled
	}
	record.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	state["sequentialThinking"] = record
	if err := t.write(state); err != nil {
		return ToolResult{}, fmt.Errorf("write thinking ledger: %w", err)
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return ToolResult{}, fmt.Errorf("marshal thinking record: %w", err)
	}
	return SuccessResult(string(encoded)), nil
}

func (t *SequentialThinkingTool) read() map[string]thinkingRecord {
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return map[string]thinkingRecord{}
	}
	var state map[string]thinkingRecord
	if err := json.Unmarshal(raw, &state); err != nil {
		return map[string]thinkingRecord{}
	}
	return state
}

func (t *SequentialThinkingTool) write(state map[string]thinkingRecord) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.path, raw, 0644)
}

// Verify SequentialThinkingTool implements Tool
var _ Tool = (*SequentialThinkingTool)(nil)
