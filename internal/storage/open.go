package storage

import (
	"context"
	"fmt"

	"github.com/terra-clan/challenge-progress/internal/config"
)

// Open builds the backend selected by cfg.Driver, scoped by cfg.KeyPrefix
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	var (
		backend Backend
		err     error
	)

	switch cfg.Driver {
	case config.DriverMemory:
		backend = NewMemoryBackend()
	case config.DriverSQLite:
		backend, err = NewSQLiteBackend(ctx, cfg.SQLitePath, cfg.Table)
	case config.DriverRedis:
		backend, err = NewRedisBackend(ctx, RedisConfig{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case config.DriverPostgres:
		backend, err = NewPostgresBackend(ctx, PostgresConfig{
			DSN:   cfg.DSN,
			Table: cfg.Table,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", cfg.Driver, err)
	}

	return WithPrefix(backend, cfg.KeyPrefix), nil
}
