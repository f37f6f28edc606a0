package infra

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/walletcore/internal/config"
	"github.com/congo-pay/walletcore/internal/store"
	"github.com/congo-pay/walletcore/internal/store/memory"
	"github.com/congo-pay/walletcore/internal/store/postgres"
	"github.com/congo-pay/walletcore/internal/walletlock"
)

// Backends are the store and wallet locker a process runs on, plus the
// connections behind them.
type Backends struct {
	Store  store.Store
	Locker walletlock.Locker
	DB     *pgxpool.Pool
	Cache  *redis.Client
}

// Open connects to Postgres when DATABASE_URL is set and to Redis when
// REDIS_URL is set. Without them it falls back to the in-memory store and an
// in-process locker; config.Load only allows that in development.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.DatabaseURL != "" {
		pool, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.DB = pool
		b.Store = postgres.New(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		b.Store = memory.New()
	}

	if cfg.RedisURL != "" {
		cache, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			b.Close(logger)
			return nil, err
		}
		b.Cache = cache
		b.Locker = walletlock.NewRedis(cache, walletlock.RedisOptions{
			TTL:  cfg.WalletLockTTL,
			Wait: cfg.WalletLockWait,
		}, logger)
	} else {
		logger.Warn("REDIS_URL not set, wallet locks are process-local")
		b.Locker = walletlock.NewLocal()
	}

	return b, nil
}

// Close releases the connections. Safe on a partially opened value.
func (b *Backends) Close(logger *slog.Logger) {
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil {
			logger.Warn("close redis", slog.Any("error", err))
		}
	}
	if b.DB != nil {
		b.DB.Close()
	}
}
