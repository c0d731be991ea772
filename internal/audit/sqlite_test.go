package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-disease-client/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testEvent(id string, outcome domain.EventOutcome, at time.Time) *domain.AssessmentEvent {
	return &domain.AssessmentEvent{
		ID:            id,
		SessionID:     "sess-1",
		Variant:       domain.Stroke,
		Generation:    3,
		Outcome:       outcome,
		DurationMs:    120,
		CorrelationID: "corr-" + id,
		CreatedAt:     at,
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "audit.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.NoError(t, store.Ping(context.Background()))
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	failed := testEvent("b", domain.OutcomeFailed, base.Add(time.Minute))
	failed.FailureKind = domain.FailureTransport

	require.NoError(t, store.Record(ctx, testEvent("a", domain.OutcomeSucceeded, base)))
	require.NoError(t, store.Record(ctx, failed))

	events, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "b", events[0].ID, "newest first")
	assert.Equal(t, domain.FailureTransport, events[0].FailureKind)
	assert.Equal(t, domain.Stroke, events[1].Variant)
	assert.Equal(t, uint64(3), events[1].Generation)
	assert.True(t, base.Equal(events[1].CreatedAt))

	page, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)
}

func TestSQLiteStore_Counts(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Record(ctx, testEvent("1", domain.OutcomeSucceeded, now)))
	require.NoError(t, store.Record(ctx, testEvent("2", domain.OutcomeSucceeded, now)))
	require.NoError(t, store.Record(ctx, testEvent("3", domain.OutcomeDiscarded, now)))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	byOutcome, err := store.CountByOutcome(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.EventOutcome]int64{
		domain.OutcomeSucceeded: 2,
		domain.OutcomeDiscarded: 1,
	}, byOutcome)
}

func TestSQLiteStore_DuplicateIDRejected(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, testEvent("dup", domain.OutcomeSucceeded, time.Now())))
	assert.Error(t, store.Record(ctx, testEvent("dup", domain.OutcomeFailed, time.Now())))
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, testEvent("a", domain.OutcomeSucceeded, time.Now())))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	var export EventExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Equal(t, 1, export.Count)
	require.Len(t, export.Events, 1)
	assert.Equal(t, "a", export.Events[0].ID)
}

func TestOpen(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	t.Run("Disabled", func(t *testing.T) {
		store, closeFn, err := Open(ctx, &domain.Config{}, logger)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, NopStore{}, store)
	})

	t.Run("SQLite", func(t *testing.T) {
		cfg := &domain.Config{Audit: domain.AuditConfig{Enabled: true, Driver: "sqlite", Path: filepath.Join(t.TempDir(), "a.db")}}
		store, closeFn, err := Open(ctx, cfg, logger)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &SQLiteStore{}, store)
	})

	t.Run("Unknown driver", func(t *testing.T) {
		cfg := &domain.Config{Audit: domain.AuditConfig{Enabled: true, Driver: "mongo"}}
		_, _, err := Open(ctx, cfg, logger)
		assert.Error(t, err)
	})
}

func TestNopStore(t *testing.T) {
	var store Store = NopStore{}
	ctx := context.Background()

	assert.NoError(t, store.Record(ctx, testEvent("x", domain.OutcomeFailed, time.Now())))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"events": []`)
}
