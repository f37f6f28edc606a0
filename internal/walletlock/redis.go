package walletlock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix           = "walletlock:v1:"
	defaultTTL          = 10 * time.Second
	defaultWait         = 5 * time.Second
	defaultPollInterval = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still carries our token, so an
// expired holder cannot free a lock someone else has since taken.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions tunes the distributed lock.
type RedisOptions struct {
	// TTL bounds how long a crashed holder can block the wallet.
	TTL time.Duration
	// Wait is the longest Acquire will poll before returning ErrTimeout.
	Wait         time.Duration
	PollInterval time.Duration
}

// Redis is a Locker backed by SET NX PX with a random token per holder.
type Redis struct {
	cache  *redis.Client
	opts   RedisOptions
	logger *slog.Logger
}

func NewRedis(cache *redis.Client, opts RedisOptions, logger *slog.Logger) *Redis {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.Wait <= 0 {
		opts.Wait = defaultWait
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Redis{cache: cache, opts: opts, logger: logger}
}

func (r *Redis) Acquire(ctx context.Context, walletID string) (func(), error) {
	key := keyPrefix + walletID
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, r.opts.Wait)
	defer cancel()

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.cache.SetNX(waitCtx, key, token, r.opts.TTL).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("acquire wallet lock %s: %w", walletID, err)
		}
		if ok {
			return r.releaser(key, token), nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrTimeout
		case <-ticker.C:
		}
	}
}

func (r *Redis) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.cache, []string{key}, token).Err(); err != nil {
				// the key still expires after TTL
				r.logger.Warn("wallet lock release failed", slog.String("key", key), slog.Any("error", err))
			}
		})
	}
}
