// Package app builds the shared infrastructure used by the api, the worker
// and the tools.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/kasir-api/internal/audit"
	"github.com/noah-isme/kasir-api/internal/auth"
	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/config"
	"github.com/noah-isme/kasir-api/internal/db"
	"github.com/noah-isme/kasir-api/internal/events"
	"github.com/noah-isme/kasir-api/internal/ledger"
)

// Dependencies enumerates the infrastructure shared across modules. DB and
// Redis are nil when the corresponding URL is not configured.
type Dependencies struct {
	DB           *pgxpool.Pool
	Redis        *redis.Client
	LimiterStore limiter.Store
	TaskClient   *asynq.Client
}

// Options tweaks dependency construction.
type Options struct {
	ApplicationName string
	Migrate         bool
	RedisMetrics    bool
	Logger          zerolog.Logger
}

// NewDependencies connects to the configured backends. Without DATABASE_URL
// the stores are in-memory; without REDIS_URL caching is disabled and rate
// limits are kept in process.
func NewDependencies(ctx context.Context, cfg *config.Config, opts Options) (*Dependencies, error) {
	deps := &Dependencies{}

	if cfg.UsesPostgres() {
		if opts.Migrate {
			if err := db.Migrate(cfg.DatabaseURL); err != nil {
				return nil, err
			}
		}
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, ApplicationName: opts.ApplicationName})
		if err != nil {
			return nil, err
		}
		deps.DB = pool
	} else {
		opts.Logger.Warn().Msg("DATABASE_URL not set, using in-memory stores")
	}

	if cfg.UsesRedis() {
		client, err := NewRedis(ctx, cfg.RedisURL, opts.RedisMetrics, opts.Logger)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Redis = client
	}

	store, err := NewLimiterStore(deps.Redis)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.LimiterStore = store

	if cfg.ReceiptsEnabled {
		redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("app: parse task queue url: %w", err)
		}
		deps.TaskClient = asynq.NewClient(redisOpt)
	}
	return deps, nil
}

// Close releases every opened backend.
func (d *Dependencies) Close() error {
	var errs error
	if d.TaskClient != nil {
		errs = errors.Join(errs, d.TaskClient.Close())
	}
	if d.Redis != nil {
		errs = errors.Join(errs, d.Redis.Close())
	}
	if d.DB != nil {
		d.DB.Close()
	}
	return errs
}

// Stores groups the repositories selected for the configured backends.
type Stores struct {
	Catalog catalog.Store
	Ledger  ledger.Store
	Admins  auth.Store
	Events  events.EventStore
	Audit   audit.Store
}

// Stores returns PostgreSQL repositories when a pool is configured and
// in-memory ones otherwise. Events are only persisted with PostgreSQL.
func (d *Dependencies) Stores() Stores {
	if d.DB == nil {
		return Stores{
			Catalog: catalog.NewMemoryStore(),
			Ledger:  ledger.NewMemoryStore(nil),
			Admins:  auth.NewMemoryStore(),
			Audit:   audit.NewMemoryStore(0),
		}
	}
	return Stores{
		Catalog: catalog.NewPostgresStore(d.DB),
		Ledger:  ledger.NewPostgresStore(d.DB),
		Admins:  auth.NewPostgresStore(d.DB),
		Events:  events.NewPostgresStore(d.DB),
		Audit:   audit.NewPostgresStore(d.DB),
	}
}

// NewRedis parses url, instruments the client with OpenTelemetry and pings it.
func NewRedis(ctx context.Context, url string, withMetrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("app: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("app: ping redis: %w", err)
	}
	return client, nil
}

// NewLimiterStore wires a rate limiter store backed by Redis, or an
// in-process store when rdb is nil.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	if rdb == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: "kasir:limiter"}), nil
	}
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "kasir:limiter"})
}
