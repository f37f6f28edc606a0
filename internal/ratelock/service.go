// Package ratelock issues time-boxed price guarantees and expires them.
package ratelock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletcore/internal/apperr"
	"github.com/congo-pay/walletcore/internal/clock"
	"github.com/congo-pay/walletcore/internal/currency"
	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/store"
)

const (
	DefaultTTL = 10 * time.Minute
	MaxTTL     = time.Hour
)

// Config bounds lock lifetimes.
type Config struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

// CreateInput describes a new lock. Quote is optional; TTL <= 0 means DefaultTTL.
type CreateInput struct {
	Base  string
	Quote string
	Rate  decimal.Decimal
	TTL   time.Duration
}

// Service creates, reads and sweeps rate locks.
type Service struct {
	store    store.RateLockStore
	registry *currency.Registry
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger
}

func NewService(st store.RateLockStore, registry *currency.Registry, clk clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = MaxTTL
	}
	if cfg.DefaultTTL > cfg.MaxTTL {
		cfg.DefaultTTL = cfg.MaxTTL
	}
	return &Service{store: st, registry: registry, clock: clk, cfg: cfg, logger: logger}
}

// WithTx returns a Service reading and writing through a unit of work.
func (s *Service) WithTx(tx store.Tx) *Service {
	clone := *s
	clone.store = tx
	return &clone
}

// Create issues a lock valid from now for the requested TTL, clamped to MaxTTL.
func (s *Service) Create(ctx context.Context, in CreateInput) (models.RateLock, error) {
	const op = "ratelock.Create"

	base, err := s.registry.Get(in.Base)
	if err != nil {
		return models.RateLock{}, err
	}
	var quote string
	if in.Quote != "" {
		q, err := s.registry.Get(in.Quote)
		if err != nil {
			return models.RateLock{}, err
		}
		quote = q.Code
	}
	if !in.Rate.IsPositive() {
		return models.RateLock{}, apperr.Errorf(apperr.KindInvalidAmount, op, "rate must be positive, got %s", in.Rate)
	}

	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}
	if ttl > s.cfg.MaxTTL {
		s.logger.Debug("rate lock ttl clamped", slog.Duration("requested", ttl), slog.Duration("max", s.cfg.MaxTTL))
		ttl = s.cfg.MaxTTL
	}

	now := s.clock.Now()
	lock := models.RateLock{
		ID:            uuid.NewString(),
		BaseCurrency:  base.Code,
		QuoteCurrency: quote,
		Rate:          in.Rate,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
	if err := s.store.CreateRateLock(ctx, lock); err != nil {
		return models.RateLock{}, apperr.Unavailable(op, err)
	}

	s.logger.Info("rate lock created",
		slog.String("rate_lock_id", lock.ID),
		slog.String("pair", lock.Pair()),
		slog.String("rate", lock.Rate.String()),
		slog.Time("expires_at", lock.ExpiresAt),
	)
	return lock, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.RateLock, error) {
	const op = "ratelock.Get"
	lock, err := s.store.GetRateLock(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.RateLock{}, apperr.Errorf(apperr.KindRateLockNotFound, op, "rate lock %s", id)
		}
		return models.RateLock{}, apperr.Unavailable(op, err)
	}
	return lock, nil
}

// IsExpired reports whether the lock is past its expiry at now or was already swept.
func (s *Service) IsExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	lock, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return lock.IsExpired(now), nil
}

// SweepExpired marks every lock that expired before now and returns the ids
// marked by this call. Locks already marked are skipped.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.store.MarkRateLocksExpired(ctx, now)
	if err != nil {
		return nil, apperr.Unavailable("ratelock.SweepExpired", err)
	}
	if len(ids) > 0 {
		s.logger.Info("rate locks expired", slog.Int("count", len(ids)), slog.Time("now", now))
	}
	return ids, nil
}
