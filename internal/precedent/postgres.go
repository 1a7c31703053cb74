package precedent

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresStore keeps precedents in a pgvector table and lets the database rank them.
type PostgresStore struct {
	db    *sql.DB
	table string
	dim   int
}

// OpenPostgres connects and creates the vector extension and table when missing.
func OpenPostgres(ctx context.Context, url, table string, dim int) (*PostgresStore, error) {
	if table == "" {
		table = "historical_clauses"
	}
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if dim <= 0 {
		dim = DefaultDimension
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s := &PostgresStore{db: db, table: pq.QuoteIdentifier(table), dim: dim}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table, s.dim),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migration failed: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`INSERT INTO %s (id, text, metadata, embedding) VALUES ($1, $2, $3::jsonb, $4::vector)
		ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`, s.table)
	for _, r := range records {
		if len(r.Embedding) != s.dim {
			return fmt.Errorf("%w: record %s has %d, table has %d", ErrDimensionMismatch, r.ID, len(r.Embedding), s.dim)
		}
		meta, err := json.Marshal(nonNilMeta(r.Metadata))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, r.ID, r.Text, string(meta), vectorLiteral(r.Embedding)); err != nil {
			return fmt.Errorf("failed to insert precedent %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Query ranks by cosine distance; the score is 1 - distance.
func (s *PostgresStore) Query(ctx context.Context, vector []float32, n int) ([]Match, error) {
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query has %d, table has %d", ErrDimensionMismatch, len(vector), s.dim)
	}
	query := fmt.Sprintf(`SELECT id, text, metadata, 1 - (embedding <=> $1::vector) AS score
		FROM %s ORDER BY embedding <=> $1::vector LIMIT $2`, s.table)
	rows, err := s.db.QueryContext(ctx, query, vectorLiteral(vector), n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var meta []byte
		if err := rows.Scan(&m.ID, &m.Text, &meta, &m.Score); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &m.Metadata); err != nil {
			return nil, fmt.Errorf("corrupt metadata for %s: %w", m.ID, err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n)
	return n, err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// vectorLiteral renders a pgvector input literal such as "[0.1,0.2]"
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
