package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// maxField caps stored payloads; full analyses can run to megabytes
const maxField = 64 << 10

// Auditor records every analyze, compare and chat call. A nil or disabled
// Auditor silently drops entries.
type Auditor struct {
	db     *sql.DB
	logger *zap.Logger
}

type Entry struct {
	ID        int64     `json:"id"`
	Operation string    `json:"operation"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Open creates the audit table in the sqlite database at path
func Open(path string, logger *zap.Logger) (*Auditor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit db: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation TEXT NOT NULL,
		input TEXT,
		output TEXT,
		error TEXT,
		timestamp DATETIME NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit table: %w", err)
	}
	return &Auditor{db: db, logger: logger}, nil
}

// Disabled returns an Auditor that records nothing
func Disabled() *Auditor {
	return &Auditor{}
}

func (a *Auditor) Enabled() bool {
	return a != nil && a.db != nil
}

// Log stores one call. input and output are JSON encoded unless they are
// already strings or raw JSON.
func (a *Auditor) Log(operation string, input, output any, err error) {
	if !a.Enabled() {
		return
	}
	var errStr string
	if err != nil {
		errStr = err.Error()
	}
	_, dbErr := a.db.Exec(
		"INSERT INTO audit_log (operation, input, output, error, timestamp) VALUES (?, ?, ?, ?, ?)",
		operation, encode(input), encode(output), errStr, time.Now().UTC(),
	)
	if dbErr != nil {
		a.logger.Warn("failed to write audit log", zap.String("operation", operation), zap.Error(dbErr))
	}
}

// Recent returns the newest entries first
func (a *Auditor) Recent(ctx context.Context, limit int) ([]Entry, error) {
	entries := []Entry{}
	if !a.Enabled() {
		return entries, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx,
		"SELECT id, operation, input, output, error, timestamp FROM audit_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Operation, &e.Input, &e.Output, &e.Error, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (a *Auditor) Close() {
	if a.Enabled() {
		a.db.Close()
	}
}

func encode(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case []byte:
		s = string(t)
	case json.RawMessage:
		s = string(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			s = fmt.Sprintf("%v", t)
		} else {
			s = string(b)
		}
	}
	if len(s) > maxField {
		s = s[:maxField] + "...(truncated)"
	}
	return s
}
