// SQLite-backed Memory port implementation.
//
// Information Hiding:
// - Schema and SQL hidden behind the Memory port
// - Message metadata stored as a JSON column

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kimmiai/kimmi/model"
)

// SqliteStore implements the Memory port on a SQLite database.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens (or creates) a SQLite database at the given path
// and ensures the schema exists.
func OpenSqlite(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSqliteInMemory creates an in-memory SQLite store, useful for tests.
func NewSqliteInMemory() (*SqliteStore, error) {
	return OpenSqlite(":memory:")
}

// Close closes the underlying database.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tool_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tool TEXT NOT NULL,
		arguments TEXT NOT NULL DEFAULT '{}',
		result TEXT NOT NULL DEFAULT 'null',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// LoadContext returns the stored transcript in insertion order.
func (s *SqliteStore) LoadContext(ctx context.Context) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, name, metadata FROM messages ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		var metadata string
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Name, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode message metadata: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Append adds a message to the transcript.
func (s *SqliteStore) Append(ctx context.Context, message model.Message) error {
	metadata := "{}"
	if message.Metadata != nil {
		encoded, err := json.Marshal(message.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode message metadata: %w", err)
		}
		metadata = string(encoded)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (role, content, name, metadata) VALUES (?, ?, ?, ?)`,
		message.Role, message.Content, message.Name, metadata)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// RecordToolCall records one tool invocation and its result.
func (s *SqliteStore) RecordToolCall(ctx context.Context, tool string, arguments map[string]any, result any) error {
	args, err := json.Marshal(arguments)
	if err != nil {
		return fmt.Errorf("failed to encode tool arguments: %w", err)
	}
	res, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode tool result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tool_history (tool, arguments, result) VALUES (?, ?, ?)`,
		tool, string(args), string(res))
	if err != nil {
		return fmt.Errorf("failed to insert tool record: %w", err)
	}
	return nil
}

// ToolHistory returns all recorded tool invocations in insertion order.
func (s *SqliteStore) ToolHistory(ctx context.Context) ([]model.ToolResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool, arguments, result FROM tool_history ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool history: %w", err)
	}
	defer rows.Close()

	var history []model.ToolResult
	for rows.Next() {
		var record model.ToolResult
		var args, result string
		if err := rows.Scan(&record.Tool, &args, &result); err != nil {
			return nil, fmt.Errorf("failed to scan tool record: %w", err)
		}
		if err := json.Unmarshal([]byte(args), &record.Arguments); err != nil {
			return nil, fmt.Errorf("failed to decode tool arguments: %w", err)
		}
		if err := json.Unmarshal([]byte(result), &record.Result); err != nil {
			return nil, fmt.Errorf("failed to decode tool result: %w", err)
		}
		history = append(history, record)
	}
	return history, rows.Err()
}

// Verify SqliteStore implements the Memory port
var _ model.Memory = (*SqliteStore)(nil)
