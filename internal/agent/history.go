package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// HistoryStore persists executed tool calls for later review.
// It is append-only: one row per tool call.
type HistoryStore struct {
	db *sql.DB
}

// ActionRecord is one executed tool call.
type ActionRecord struct {
	ID        int64
	SessionID string
	ToolUseID string
	Tool      string
	Action    string
	Input     string
	Output    string
	Error     string
	HasImage  bool
	Duration  time.Duration
	CreatedAt time.Time
}

// OpenHistoryStore opens (or creates) the history DB under dataDir/history.db.
func OpenHistoryStore(dataDir string) (*HistoryStore, error) {
	dbPath := filepath.Join(dataDir, "history.db")
	return OpenHistoryStoreDSN(dbPath)
}

// OpenHistoryStoreDSN opens (or creates) a history DB using the given sqlite DSN/path.
// Tests may pass ":memory:" to avoid touching disk.
func OpenHistoryStoreDSN(dsn string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// Every pooled connection to :memory: would be a separate database.
	db.SetMaxOpenConns(1)

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &HistoryStore{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	tool_use_id TEXT NOT NULL,
	tool TEXT NOT NULL,
	action TEXT,
	input_json TEXT,
	output TEXT,
	error TEXT,
	has_image INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("create actions table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS actions_session ON actions (session_id)`); err != nil {
		return fmt.Errorf("create actions index: %w", err)
	}
	return nil
}

// Close closes the underlying DB.
func (s *HistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one action. The input is stored redacted.
func (s *HistoryStore) Record(ctx context.Context, rec ActionRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history store not initialized")
	}
	if rec.SessionID == "" || rec.ToolUseID == "" {
		return fmt.Errorf("session and tool use IDs are required")
	}
	if rec.Action == "" {
		rec.Action = actionName(rec.Input)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO actions (session_id, tool_use_id, tool, action, input_json, output, error, has_image, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.SessionID, rec.ToolUseID, rec.Tool, rec.Action, RedactInput(rec.Input), rec.Output, rec.Error,
		rec.HasImage, rec.Duration.Milliseconds(), rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("persist action: %w", err)
	}
	return nil
}

// Recent returns up to limit actions, newest first. An empty sessionID
// matches every session.
func (s *HistoryStore) Recent(ctx context.Context, sessionID string, limit int) ([]ActionRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history store not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, tool_use_id, tool, COALESCE(action, ''), COALESCE(input_json, ''),
	COALESCE(output, ''), COALESCE(error, ''), has_image, duration_ms, created_at
FROM actions
WHERE ? = '' OR session_id = ?
ORDER BY id DESC
LIMIT ?`, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []ActionRecord
	for rows.Next() {
		var rec ActionRecord
		var ms int64
		var created string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.ToolUseID, &rec.Tool, &rec.Action, &rec.Input,
			&rec.Output, &rec.Error, &rec.HasImage, &ms, &created); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.CreatedAt = ts
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func actionName(input string) string {
	var env struct {
		Action string `json:"action"`
	}
	if json.Unmarshal([]byte(input), &env) != nil {
		return ""
	}
	return env.Action
}
