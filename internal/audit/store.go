// Package audit stores submission metadata: which variant was assessed, how
// the call resolved and how long it took. Form values and results are never
// stored.
package audit

import (
	"context"
	"io"
	"time"

	"github.com/smart-disease-client/internal/domain"
)

// Store defines the audit trail operations.
type Store interface {
	domain.EventRecorder

	// List returns events newest first.
	List(ctx context.Context, limit, offset int) ([]*domain.AssessmentEvent, error)

	// Count returns the total number of events.
	Count(ctx context.Context) (int64, error)

	// CountByOutcome groups event totals by outcome.
	CountByOutcome(ctx context.Context) (map[domain.EventOutcome]int64, error)

	// ExportJSON writes every event to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// EventExport represents the JSON export format.
type EventExport struct {
	Version    string                    `json:"version"`
	ExportedAt time.Time                 `json:"exported_at"`
	Count      int                       `json:"count"`
	Events     []*domain.AssessmentEvent `json:"events"`
}

const exportVersion = "1.0"

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(s scanner) (*domain.AssessmentEvent, error) {
	e := &domain.AssessmentEvent{}
	var variant, outcome, kind string

	err := s.Scan(
		&e.ID, &e.SessionID, &variant, &e.Generation,
		&outcome, &kind, &e.DurationMs, &e.CorrelationID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Variant = domain.DiseaseVariant(variant)
	e.Outcome = domain.EventOutcome(outcome)
	e.FailureKind = domain.FailureKind(kind)
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

// NopStore discards events. It is used when auditing is disabled.
type NopStore struct{}

func (NopStore) Record(context.Context, *domain.AssessmentEvent) error { return nil }
func (NopStore) List(context.Context, int, int) ([]*domain.AssessmentEvent, error) {
	return nil, nil
}
func (NopStore) Count(context.Context) (int64, error) { return 0, nil }
func (NopStore) CountByOutcome(context.Context) (map[domain.EventOutcome]int64, error) {
	return map[domain.EventOutcome]int64{}, nil
}
func (NopStore) ExportJSON(_ context.Context, writer io.Writer) error {
	return writeExport(writer, nil)
}
func (NopStore) Ping(context.Context) error { return nil }
func (NopStore) Close() error               { return nil }
