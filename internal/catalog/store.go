// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps a SQLite history of every fetch outcome, keyed by
// target path, so the state of an output tree can be queried across runs.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/paperdl/pkg/types"
)

const defaultMaxResults = 50

// Store manages the catalog database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// Row is one catalog entry: the last known outcome for a target path.
type Row struct {
	Path      string
	Category  string
	Year      string
	Title     string
	URL       string
	Outcome   types.Outcome
	Bytes     int64
	Error     string
	RunID     string
	UpdatedAt time.Time
}

// RunCounts is the per-run tally stored when a run ends.
type RunCounts struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Category string
	Outcome  types.Outcome
	Limit    int
}

// Open opens or creates the catalog at cfg.Path, creating its parent
// directory and schema if needed.
func Open(cfg types.CatalogConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("catalog path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			listing TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			succeeded INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			path TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			year TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			outcome TEXT NOT NULL,
			bytes INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			run_id TEXT REFERENCES runs(id),
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_category ON entries(category)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_outcome ON entries(outcome)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, runID, listing string, started time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, listing, started_at) VALUES (?, ?, ?)`,
		runID, listing, started.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", runID, err)
	}
	return nil
}

// EndRun stores the final counts for a run.
func (s *Store) EndRun(ctx context.Context, runID string, c RunCounts, finished time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, succeeded = ?, skipped = ?, failed = ? WHERE id = ?`,
		finished.UTC().Format(time.RFC3339Nano), c.Succeeded, c.Skipped, c.Failed, runID,
	)
	if err != nil {
		return fmt.Errorf("updating run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// Record upserts the outcome of r under its target path. A skip does not
// overwrite the byte count of an earlier successful download.
func (s *Store) Record(ctx context.Context, runID string, r types.Result) error {
	errText := ""
	if r.Err != nil {
		errText = r.Err.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (path, category, year, title, url, outcome, bytes, error, run_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			category=excluded.category, year=excluded.year, title=excluded.title,
			url=excluded.url, outcome=excluded.outcome,
			bytes=CASE WHEN excluded.outcome = 'skipped' THEN entries.bytes ELSE excluded.bytes END,
			error=excluded.error, run_id=excluded.run_id, updated_at=excluded.updated_at`,
		r.Path, r.Entry.Category, r.Entry.Year, r.Entry.Title, r.Entry.URL,
		string(r.Outcome), r.Bytes, errText, runID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", r.Path, err)
	}
	return nil
}

// List returns catalog rows ordered by category, year, and title.
func (s *Store) List(ctx context.Context, f Filter) ([]Row, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(f.Outcome))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = s.maxResults
	}

	query := `SELECT path, category, year, title, url, outcome, bytes, COALESCE(error, ''), COALESCE(run_id, ''), updated_at FROM entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY category, year, title LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r       Row
			outcome string
			updated string
		)
		if err := rows.Scan(&r.Path, &r.Category, &r.Year, &r.Title, &r.URL,
			&outcome, &r.Bytes, &r.Error, &r.RunID, &updated); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		r.Outcome = types.Outcome(outcome)
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			r.UpdatedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Recorder adapts a Store to the fetch observer interface, recording each
// finished entry under one run id. Record failures are logged and do not
// interrupt the run.
type Recorder struct {
	store  *Store
	runID  string
	logger *zap.Logger
}

// Recorder returns an observer that records results for runID.
func (s *Store) Recorder(runID string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: s, runID: runID, logger: logger}
}

func (r *Recorder) Started(types.Entry, string)        {}
func (r *Recorder) Progress(types.Entry, int64, int64) {}

func (r *Recorder) Finished(res types.Result) {
	if err := r.store.Record(context.Background(), r.runID, res); err != nil {
		r.logger.Warn("catalog record failed", zap.String("path", res.Path), zap.Error(err))
	}
}
