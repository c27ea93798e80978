package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/jwfoods/internal/config"
	"github.com/noah-isme/jwfoods/internal/obs"
	"github.com/noah-isme/jwfoods/internal/store"
)

type storeBackend struct {
	store.Backend
	locker  store.Locker
	redis   *redis.Client
	closers []func()
}

func (b storeBackend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openStore connects the session store backend selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics bool) (storeBackend, error) {
	var out storeBackend
	switch cfg.StoreDriver {
	case config.StoreRedis:
		client, err := openRedis(ctx, cfg.RedisURL, logger, metrics)
		if err != nil {
			return out, err
		}
		out.redis = client
		out.Backend = store.NewRedisBackend(client, cfg.StoreTTL)
		out.locker = store.RedisLocker{R: client}
		out.closers = append(out.closers, func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		})
	case config.StorePebble:
		db, err := store.OpenPebble(cfg.PebbleDir)
		if err != nil {
			return out, err
		}
		out.Backend = db
		out.closers = append(out.closers, func() {
			if err := db.Close(); err != nil {
				logger.Error().Err(err).Msg("close pebble")
			}
		})
	case config.StorePostgres:
		version, err := store.Migrate(cfg.DatabaseURL)
		if err != nil {
			return out, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Uint("version", version).Msg("store migrations applied")

		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return out, fmt.Errorf("parse database config: %w", err)
		}
		poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
		if poolConfig.ConnConfig.RuntimeParams == nil {
			poolConfig.ConnConfig.RuntimeParams = map[string]string{}
		}
		poolConfig.ConnConfig.RuntimeParams["application_name"] = "jwfoods-api"
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return out, fmt.Errorf("connect database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return out, fmt.Errorf("ping database: %w", err)
		}
		out.Backend = store.NewPostgresBackend(pool)
		out.closers = append(out.closers, pool.Close)
	default:
		out.Backend = store.NewMemoryBackend()
	}
	return out, nil
}

func openRedis(ctx context.Context, url string, logger zerolog.Logger, metrics bool) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
