// Status tool - minimal built-in tool for smoke testing the tool loop.

package tools

import (
	"context"
	"encoding/json"
	"time"
)

// StatusTool returns a small payload demonstrating tool execution.
type StatusTool struct {
	BaseTool
}

// NewStatusTool creates a status tool.
func NewStatusTool() *StatusTool {
	return &StatusTool{}
}

// Metadata returns the tool metadata.
func (t *StatusTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "get_status",
		Description: "Returns a simple status payload demonstrating tool execution",
		Parameters: []ToolParameter{
			{Name: "category", ParamType: "string", Description: "Status category to report", Required: false},
		},
	}
}

// Execute runs the tool.
func (t *StatusTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	category := "general"
	if c, ok := args["category"].(string); ok && c != "" {
		category = c
	}

	payload := map[string]any{
		"category":  category,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"message":   "status tool is online",
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return FailureResult(err), nil
	}
	return SuccessResult(string(encoded)), nil
}

// Verify StatusTool implements Tool
var _ Tool = (*StatusTool)(nil)
