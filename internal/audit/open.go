package audit

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/smart-disease-client/internal/database"
	"github.com/smart-disease-client/internal/domain"
)

// Open builds the store selected by cfg.Audit. The returned close function
// releases the store and any connection pool it owns.
func Open(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (Store, func(), error) {
	if !cfg.Audit.Enabled {
		logger.Info("Assessment audit trail disabled")
		return NopStore{}, func() {}, nil
	}

	switch cfg.Audit.Driver {
	case "sqlite":
		store, err := NewSQLiteStore(cfg.Audit.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite audit store: %w", err)
		}
		logger.WithField("path", cfg.Audit.Path).Info("Assessment audit trail using SQLite")
		return store, func() { _ = store.Close() }, nil

	case "postgres":
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting audit database: %w", err)
		}
		store, err := NewPostgresStore(ctx, db.SQL())
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported audit driver: %s", cfg.Audit.Driver)
	}
}
