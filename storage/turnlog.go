// Per-turn artifact logging.
//
// Each completed turn is written as a standalone JSON file so that
// individual exchanges can be inspected and replayed offline.

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kimmiai/kimmi/model"
)

// TurnLogger writes one JSON artifact per completed turn.
type TurnLogger struct {
	dir string
}

// NewTurnLogger creates a logger writing artifacts under dir.
func NewTurnLogger(dir string) (*TurnLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create turn log directory: %w", err)
	}
	return &TurnLogger{dir: dir}, nil
}

// turnArtifact is the on-disk layout of a logged turn.
type turnArtifact struct {
	Timestamp   string             `json:"timestamp"`
	UserMessage model.Message      `json:"user_message"`
	Assistant   model.Message      `json:"assistant_message"`
	ToolResults []model.ToolResult `json:"tool_results"`
	Raw         map[string]any     `json:"raw,omitempty"`
	Exhausted   bool               `json:"exhausted,omitempty"`
}

// Log writes the turn to a new file and returns its path. File names
// combine a UTC timestamp with a short unique suffix so concurrent
// turns never collide.
func (l *TurnLogger) Log(turn model.Turn) (string, error) {
	now := time.Now().UTC()
	suffix := uuid.NewString()[:12]
	name := fmt.Sprintf("%s_%s.json", now.Format("20060102T150405"), suffix)
	path := filepath.Join(l.dir, name)

	artifact := turnArtifact{
		Timestamp:   now.Format(time.RFC3339),
		UserMessage: turn.UserMessage,
		Assistant:   turn.AssistantMessage,
		ToolResults: turn.ToolResults,
		Raw:         turn.RawModelReply,
		Exhausted:   turn.Exhausted,
	}

	raw, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode turn artifact: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write turn artifact: %w", err)
	}
	return path, nil
}
