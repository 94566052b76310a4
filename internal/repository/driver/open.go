// Package driver selects the persistent store implementation from config.
package driver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/croptrace/internal/config"
	"github.com/mamadbah2/croptrace/internal/repository"
	"github.com/mamadbah2/croptrace/internal/repository/memory"
	"github.com/mamadbah2/croptrace/internal/repository/mongodb"
	"github.com/mamadbah2/croptrace/internal/repository/sqlite"
)

// Open returns the store named by cfg.Store.Driver.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (repository.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	case config.DriverSQLite:
		store, err := sqlite.NewStore(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("sqlite store opened", zap.String("path", store.Path()))
		return store, nil
	case config.DriverMongoDB:
		store, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, logger.Named("mongodb"))
		if err != nil {
			return nil, fmt.Errorf("open mongodb store: %w", err)
		}
		logger.Info("mongodb store connected", zap.String("db", cfg.MongoDB.DBName))
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
