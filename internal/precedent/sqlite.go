package precedent

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS precedents (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	embedding TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore keeps precedents in a single table and scores them by cosine
// similarity in process. Suited to the small historical sets a single desk curates.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the store at path. Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create precedents table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Add(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO precedents (id, text, metadata, embedding) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET text = excluded.text, metadata = excluded.metadata, embedding = excluded.embedding`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := json.Marshal(nonNilMeta(r.Metadata))
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", r.ID, err)
		}
		vec, err := json.Marshal(r.Embedding)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Text, string(meta), string(vec)); err != nil {
			return fmt.Errorf("failed to insert precedent %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Query(ctx context.Context, vector []float32, n int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, text, metadata, embedding FROM precedents")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var id, text, meta, vec string
		if err := rows.Scan(&id, &text, &meta, &vec); err != nil {
			return nil, err
		}
		var embedding []float32
		if err := json.Unmarshal([]byte(vec), &embedding); err != nil {
			return nil, fmt.Errorf("corrupt embedding for %s: %w", id, err)
		}
		if len(embedding) != len(vector) {
			return nil, fmt.Errorf("%w: stored %d, query %d", ErrDimensionMismatch, len(embedding), len(vector))
		}
		m := Match{ID: id, Text: text, Score: cosineSimilarity(vector, embedding)}
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			return nil, fmt.Errorf("corrupt metadata for %s: %w", id, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topN(matches, n), nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM precedents").Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nonNilMeta(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
