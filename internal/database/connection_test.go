package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/smart-disease-client/internal/domain"
)

func startPostgres(t *testing.T) domain.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return domain.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		Database:        "testdb",
		Username:        "testuser",
		Password:        "testpass",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestDatabaseConnection(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()

	db, err := NewConnection(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Health(ctx))
	assert.NotZero(t, db.Stats().TotalConns())

	var one int
	require.NoError(t, db.SQL().QueryRowContext(ctx, "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestMigrationRunner(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()
	url := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	runner, err := NewMigrationRunner(url, quietLogger())
	require.NoError(t, err)
	defer runner.Close()

	_, _, err = runner.Version()
	assert.True(t, errors.Is(err, migrate.ErrNilVersion))

	require.NoError(t, runner.Up(ctx))
	require.NoError(t, runner.Up(ctx), "second up is a no-op")

	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	db, err := NewConnection(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer db.Close()

	var exists bool
	require.NoError(t, db.SQL().QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'assessment_events')").Scan(&exists))
	assert.True(t, exists)

	require.NoError(t, runner.Down(ctx))
}

func TestDSN(t *testing.T) {
	dsn := DSN(domain.DatabaseConfig{Host: "db", Port: 5432, Database: "risk", Username: "svc", Password: "pw", SSLMode: "require"})
	assert.Equal(t, "host=db port=5432 dbname=risk user=svc password=pw sslmode=require", dsn)
}
