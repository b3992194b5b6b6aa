// Package history records quota percentages over time in a local SQLite
// database so they can be charted later.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"

	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

// Retention is how long samples are kept by Prune.
const Retention = 30 * 24 * time.Hour

// Sample is one recorded percentage for a credential's model.
type Sample struct {
	File       string    `json:"file"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Percentage float64   `json:"percentage"`
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
}

// Store wraps the history database.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// A single connection keeps pragmas in effect and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("configuring history: %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) createSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS quota_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		percentage REAL NOT NULL,
		captured_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_quota_samples_file_model ON quota_samples(file, model, captured_at);
	CREATE INDEX IF NOT EXISTS idx_quota_samples_captured ON quota_samples(captured_at);
	`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("creating history schema: %w", err)
	}
	return nil
}

// Record stores one sample per model, all stamped with the current time.
func (s *Store) Record(ctx context.Context, file, provider string, quotas []models.QuotaModel) error {
	if len(quotas) == 0 {
		return nil
	}
	at := s.now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO quota_samples (file, provider, model, percentage, captured_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, q := range quotas {
		if _, err := stmt.ExecContext(ctx, file, provider, q.Name, q.Percentage, at); err != nil {
			return fmt.Errorf("recording history: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	return nil
}

// Series returns the samples for file captured at or after since, oldest
// first. An empty model returns every model.
func (s *Store) Series(ctx context.Context, file, model string, since time.Time) ([]Sample, error) {
	query := `SELECT file, provider, model, percentage, captured_at FROM quota_samples
		WHERE file = ? AND captured_at >= ?`
	args := []any{file, since.UnixMilli()}
	if model != "" {
		query += " AND model = ?"
		args = append(args, model)
	}
	query += " ORDER BY captured_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var samples []Sample
	for rows.Next() {
		var sm Sample
		var at int64
		if err := rows.Scan(&sm.File, &sm.Provider, &sm.Model, &sm.Percentage, &at); err != nil {
			return nil, fmt.Errorf("querying history: %w", err)
		}
		sm.CapturedAt = time.UnixMilli(at)
		samples = append(samples, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	return samples, nil
}

// Models lists the distinct model names recorded for file.
func (s *Store) Models(ctx context.Context, file string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT model FROM quota_samples WHERE file = ? ORDER BY model", file)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("querying history: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Prune deletes samples older than Retention and reports how many went.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-Retention).UnixMilli()
	res, err := s.db.ExecContext(ctx, "DELETE FROM quota_samples WHERE captured_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return res.RowsAffected()
}
