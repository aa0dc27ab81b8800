package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bookshelf/internal/config"
	"bookshelf/internal/storage"
	"bookshelf/internal/storage/ch"
	"bookshelf/internal/storage/jsonfile"
	"bookshelf/internal/storage/pg"
	"bookshelf/internal/storage/sqlite"
	"bookshelf/internal/storage/stubs"
)

// openBackend connects the configured storage backend and initializes it
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	var backend storage.Storage

	switch cfg.StorageBackend {
	case config.BackendMemory:
		logger.Info("Using in-memory storage", zap.Int("quota_bytes", cfg.StorageQuotaBytes))
		var opts []stubs.Option
		if cfg.StorageQuotaBytes > 0 {
			opts = append(opts, stubs.WithQuota(cfg.StorageQuotaBytes))
		}
		backend = stubs.NewMemoryStore(opts...)
	case config.BackendJSON:
		logger.Info("Using JSON file storage", zap.String("path", cfg.StoragePath))
		backend = jsonfile.New(cfg.StoragePath)
	case config.BackendSQLite:
		logger.Info("Using SQLite storage", zap.String("path", cfg.StoragePath))
		store, err := sqlite.Open(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		backend = store
	case config.BackendPostgres:
		logger.Info("Connecting to Postgres")
		store, err := pg.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		backend = store
	case config.BackendClickHouse:
		tlsStatus := "without TLS"
		if cfg.ClickHouseUseTLS {
			tlsStatus = "with TLS"
		}
		logger.Info("Connecting to ClickHouse",
			zap.String("host", cfg.ClickHouseHost),
			zap.Int("port", cfg.ClickHousePort),
			zap.String("database", cfg.ClickHouseDatabase),
			zap.String("user", cfg.ClickHouseUser),
			zap.String("tls", tlsStatus),
		)
		store, err := ch.NewClickHouseDB(
			cfg.ClickHouseHost,
			cfg.ClickHousePort,
			cfg.ClickHouseDatabase,
			cfg.ClickHouseUser,
			cfg.ClickHousePassword,
			cfg.ClickHouseUseTLS,
		)
		if err != nil {
			return nil, err
		}
		backend = store
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}

	if err := backend.Initialize(ctx); err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", zap.String("backend", cfg.StorageBackend))
	return backend, nil
}
