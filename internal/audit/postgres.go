package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/smart-disease-client/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
// It expects the schema to already exist (created via migrations).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL audit store.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Record stores one event. Re-recording an id is a no-op.
func (s *PostgresStore) Record(ctx context.Context, event *domain.AssessmentEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assessment_events (
			id, session_id, variant, generation, outcome,
			failure_kind, duration_ms, correlation_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`,
		event.ID,
		event.SessionID,
		string(event.Variant),
		int64(event.Generation),
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
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.AssessmentEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, variant, generation, outcome,
			failure_kind, duration_ms, correlation_id, created_at
		FROM assessment_events
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return collect(rows)
}

// Count returns the total number of events.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessment_events").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// CountByOutcome groups event totals by outcome.
func (s *PostgresStore) CountByOutcome(ctx context.Context) (map[domain.EventOutcome]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM assessment_events GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	return collectCounts(rows)
}

// ExportJSON exports all events to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
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
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the connection pool is owned by the caller.
func (s *PostgresStore) Close() error {
	return nil
}
