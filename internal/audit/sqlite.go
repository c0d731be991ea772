package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/smart-disease-client/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite audit store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent submissions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessment_events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		variant TEXT NOT NULL,
		generation INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		failure_kind TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL,
		correlation_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_created_at ON assessment_events(created_at);
	CREATE INDEX IF NOT EXISTS idx_events_variant_outcome ON assessment_events(variant, outcome);
	`

	_, err := db.Exec(schema)
	return err
}

// Record stores one event.
func (s *SQLiteStore) Record(ctx context.Context, event *domain.AssessmentEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assessment_events (
			id, session_id, variant, generation, outcome,
			failure_kind, duration_ms, correlation_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.SessionID,
		string(event.Variant),
		event.Generation,
		string(event.Outcome),
		string(event.FailureKind),
		event.DurationMs,
		event.CorrelationID,
		event.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// List returns events newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*domain.AssessmentEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, variant, generation, outcome,
			failure_kind, duration_ms, correlation_id, created_at
		FROM assessment_events
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return collect(rows)
}

// Count returns the total number of events.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessment_events").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// CountByOutcome groups event totals by outcome.
func (s *SQLiteStore) CountByOutcome(ctx context.Context) (map[domain.EventOutcome]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM assessment_events GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	return collectCounts(rows)
}

// ExportJSON exports all events to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, variant, generation, outcome,
			failure_kind, duration_ms, correlation_id, created_at
		FROM assessment_events
		ORDER BY created_at, id
	`)
	if err != nil {
		return fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events, err := collect(rows)
	if err != nil {
		return err
	}
	return writeExport(writer, events)
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func collect(rows *sql.Rows) ([]*domain.AssessmentEvent, error) {
	var events []*domain.AssessmentEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

func collectCounts(rows *sql.Rows) (map[domain.EventOutcome]int64, error) {
	counts := make(map[domain.EventOutcome]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[domain.EventOutcome(outcome)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counts: %w", err)
	}
	return counts, nil
}
