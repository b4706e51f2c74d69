// Package obslog archives observation exchanges in a local SQLite
// database. The archive is cold-path only: the engine appends after
// observe and study runs, and the status and history commands read it
// back. Nothing on the hot response path touches this store.
package obslog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const defaultRecentLimit = 20

// Row is one archived observation exchange.
type Row struct {
	ID        int64
	PersonaID string
	Provider  string
	Model     string
	Prompt    string
	Response  string
	LatencyMS int64
	Tokens    int
	Quality   float64
	CreatedAt time.Time
}

// Stats summarizes the archive for one persona.
type Stats struct {
	Count        int64
	Providers    int64
	AvgQuality   float64
	AvgLatencyMS float64
	LastAt       time.Time
}

// Store wraps the observations database. Safe for concurrent use; the
// underlying *sql.DB serializes access.
type Store struct {
	db *sql.DB
}

// Open creates the database file (and its parent directory) if needed
// and ensures the schema exists.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		persona_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		latency_ms INTEGER NOT NULL,
		tokens INTEGER NOT NULL,
		quality REAL NOT NULL,
		created_at DATETIME NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create observations table: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_observations_persona ON observations(persona_id, id)`)
	if err != nil {
		return fmt.Errorf("failed to create observations index: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append archives one exchange and returns its row id. A zero
// CreatedAt is filled with the current time.
func (s *Store) Append(ctx context.Context, row Row) (int64, error) {
	createdAt := row.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO observations
		 (persona_id, provider, model, prompt, response, latency_ms, tokens, quality, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.PersonaID, row.Provider, row.Model, row.Prompt, row.Response,
		row.LatencyMS, row.Tokens, row.Quality, createdAt)
	if err != nil {
		return 0, fmt.Errorf("failed to append observation: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit rows for one persona, newest first.
// A non-positive limit falls back to the default.
func (s *Store) Recent(ctx context.Context, personaID string, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, persona_id, provider, model, prompt, response, latency_ms, tokens, quality, created_at
		 FROM observations WHERE persona_id = ? ORDER BY id DESC LIMIT ?`,
		personaID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.PersonaID, &r.Provider, &r.Model, &r.Prompt,
			&r.Response, &r.LatencyMS, &r.Tokens, &r.Quality, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}
	return out, nil
}

// PersonaStats aggregates the archive for one persona. An empty archive
// yields zero values.
func (s *Store) PersonaStats(ctx context.Context, personaID string) (Stats, error) {
	var st Stats
	var lastAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT provider),
		        COALESCE(AVG(quality), 0), COALESCE(AVG(latency_ms), 0), MAX(created_at)
		 FROM observations WHERE persona_id = ?`,
		personaID).Scan(&st.Count, &st.Providers, &st.AvgQuality, &st.AvgLatencyMS, &lastAt)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate observations: %w", err)
	}
	if lastAt.Valid {
		st.LastAt = lastAt.Time
	}
	return st, nil
}
