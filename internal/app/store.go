package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/servicebook/servicebook/internal/platform/cache"
	"github.com/servicebook/servicebook/internal/platform/db"
	"github.com/servicebook/servicebook/internal/store"
)

// OpenStore connects the document store selected by STORE_DRIVER. The returned func releases
// the connection.
func OpenStore(ctx context.Context, cfg *Config, logger *slog.Logger) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case StoreRedis:
		client, err := cache.New(ctx, cfg.RedisOptions())
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis store", slog.String("addr", cfg.RedisAddr), slog.String("prefix", cfg.StoreKeyPrefix))
		return store.NewRedisStore(client, cfg.StoreKeyPrefix), func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}, nil
	case StorePostgres:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		st := store.NewPostgresStore(pool)
		if err := st.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("app: ensure store schema: %w", err)
		}
		logger.Info("using postgres store")
		return st, pool.Close, nil
	case StoreMemory, "":
		logger.Warn("using in-memory store; data is lost on exit")
		return store.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("app: unknown store driver %q", cfg.StoreDriver)
	}
}

// RedisOptions returns the redis connection settings shared by the store and the job queue.
func (c *Config) RedisOptions() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// QueueOptions returns the asynq connection settings for the maintenance queue.
func (c *Config) QueueOptions() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}
