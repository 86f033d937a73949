// Memory bank tool - durable scratchpad the model can append notes to.
//
// Information Hiding:
// - Bank file layout and locking hidden
// - Entries stored as a JSON document under the data directory

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const bankFileName = "mcp_memory_bank.json"

type bankEntry struct {
	Entry     string   `json:"entry"`
	Tags      []string `json:"tags"`
	Timestamp string   `json:"timestamp"`
}

type bankState struct {
	Enabled   bool        `json:"enabled"`
	Entries   []bankEntry `json:"entries"`
	UpdatedAt string      `json:"updatedAt,omitempty"`
}

// MemoryBankTool manages a persistent note bank. Supported actions:
// append, clear, enable, disable, and status (the default).
type MemoryBankTool struct {
	BaseTool
	mu   sync.Mutex
	path string
}

// NewMemoryBankTool creates a memory bank tool storing its bank file under
// the given data directory.
func NewMemoryBankTool(dataDir string) *MemoryBankTool {
	return &MemoryBankTool{path: filepath.Join(dataDir, bankFileName)}
}

// Metadata returns the tool metadata.
func (t *MemoryBankTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "memory_bank",
		Description: "Append to, clear, or inspect the persistent memory bank",
		Parameters: []ToolParameter{
			{Name: "action", ParamType: "string", Description: "One of append, clear, enable, disable, status", Required: false},
			{Name: "entry", ParamType: "string", Description: "Note text to append", Required: false},
			{Name: "tags", ParamType: "array", Description: "Optional tags for the entry", Required: false},
			{Name: "limit", ParamType: "number", Description: "Maximum recent entries to return", Required: false},
		},
	}
}

// Execute runs the requested bank action and returns a JSON summary of the
// bank state.
func (t *MemoryBankTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.read()

	action := "status"
	if a, ok := args["action"].(string); ok && a != "" {
		action = strings.ToLower(a)
	}

	switch action {
	case "append":
		entry, _ := args["entry"].(string)
		if entry != "" {
			state.Entries = append(state.Entries, bankEntry{
				Entry:     entry,
				Tags:      stringSlice(args["tags"]),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			state.Enabled = true
		}
	case "clear":
		state.Entries = nil
	case "disable":
		state.Enabled = false
	case "enable":
		state.Enabled = true
	case "status":
		// Read-only
	default:
		return FailureResultf("unknown memory bank action %q", action), nil
	}

	state.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := t.write(state); err != nil {
		return ToolResult{}, fmt.Errorf("write memory bank: %w", err)
	}

	limit := 20
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}
	recent := state.Entries
	if len(recent) > limit {
		recent = recent[len(recent)-limit:]
	}

	summary, err := json.Marshal(map[string]any{
		"enabled":   state.Enabled,
		"count":     len(state.Entries),
		"recent":    recent,
		"updatedAt": state.UpdatedAt,
	})
	if err != nil {
		return ToolResult{}, fmt.Errorf("marshal memory bank summary: %w", err)
	}
	return SuccessResult(string(summary)), nil
}

func (t *MemoryBankTool) read() bankState {
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return bankState{Enabled: true}
	}
	var state bankState
	if err := json.Unmarshal(raw, &state); err != nil {
		return bankState{Enabled: true}
	}
	return state
}

func (t *MemoryBankTool) write(state bankState) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.path, raw, 0644)
}

func stringSlice(value any) []string {
	list, ok := value.([]any)
	if !ok {
		return []string{}
	}
	result := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

// Verify MemoryBankTool implements Tool
var _ Tool = (*MemoryBankTool)(nil)
