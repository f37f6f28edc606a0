// Package reaper periodically expires rate locks and releases the holds that
// depended on them.
package reaper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/congo-pay/walletcore/internal/apperr"
	"github.com/congo-pay/walletcore/internal/clock"
	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/reservation"
)

const (
	DefaultInterval     = time.Hour
	DefaultRetryBackoff = time.Minute
)

// LockSweeper marks expired rate locks.
type LockSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) ([]string, error)
}

// PendingLister finds holds whose rate lock has expired.
type PendingLister interface {
	ListPendingExpired(ctx context.Context, now time.Time) ([]models.Reservation, error)
}

// Releaser releases a single hold.
type Releaser interface {
	Release(ctx context.Context, reservationID string, reason reservation.Reason) error
}

type Config struct {
	Interval     time.Duration
	RetryBackoff time.Duration
}

// Result summarises one sweep.
type Result struct {
	ExpiredLocks []string
	Released     int
	// Skipped counts holds that reached a terminal state before the reaper got to them.
	Skipped int
}

// Status describes the most recent sweep made by Run.
type Status struct {
	LastSweepAt time.Time
	LastError   string
	Released    int
}

type Reaper struct {
	locks    LockSweeper
	pending  PendingLister
	releaser Releaser
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger

	mu     sync.Mutex
	status Status
}

func New(locks LockSweeper, pending PendingLister, releaser Releaser, clk clock.Clock, cfg Config, logger *slog.Logger) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	return &Reaper{locks: locks, pending: pending, releaser: releaser, clock: clk, cfg: cfg, logger: logger}
}

// Run sweeps immediately and then every Interval until ctx is cancelled. A
// failed sweep is retried after RetryBackoff. Run returns nil on shutdown.
func (r *Reaper) Run(ctx context.Context) error {
	r.logger.Info("expiry reaper started",
		slog.Duration("interval", r.cfg.Interval),
		slog.Duration("retry_backoff", r.cfg.RetryBackoff),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("expiry reaper stopped")
			return nil
		case <-timer.C:
		}

		next := r.cfg.Interval
		res, err := r.Sweep(ctx)
		r.record(res, err)
		switch {
		case ctx.Err() != nil:
			r.logger.Info("expiry reaper stopped", slog.Int("released", res.Released))
			return nil
		case err != nil:
			r.logger.Error("expiry sweep failed",
				slog.Any("error", err),
				slog.Bool("retryable", apperr.IsRetryable(err)),
				slog.Duration("retry_in", r.cfg.RetryBackoff),
			)
			next = r.cfg.RetryBackoff
		default:
			r.logger.Info("expiry sweep completed",
				slog.Int("expired_locks", len(res.ExpiredLocks)),
				slog.Int("released", res.Released),
				slog.Int("skipped", res.Skipped),
			)
		}
		timer.Reset(next)
	}
}

// Status returns the outcome of the last sweep made by Run.
func (r *Reaper) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Reaper) record(res Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = Status{LastSweepAt: r.clock.Now(), Released: res.Released}
	if err != nil {
		r.status.LastError = err.Error()
	}
}

// Sweep runs one cycle: mark expired locks, then release every pending hold
// whose lock is expired, including holds left over from an interrupted
// earlier cycle. Cancellation is observed between releases only.
func (r *Reaper) Sweep(ctx context.Context) (Result, error) {
	now := r.clock.Now()

	var res Result
	ids, err := r.locks.SweepExpired(ctx, now)
	if err != nil {
		return res, err
	}
	res.ExpiredLocks = ids

	pending, err := r.pending.ListPendingExpired(ctx, now)
	if err != nil {
		return res, apperr.Unavailable("reaper.Sweep", err)
	}

	var errs []error
	for _, hold := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := r.releaser.Release(ctx, hold.ID, reservation.ReasonExpired)
		switch {
		case err == nil:
			res.Released++
		case apperr.Is(err, apperr.KindReservationNotPending):
			res.Skipped++
		default:
			r.logger.Warn("release of expired reservation failed",
				slog.String("reservation_id", hold.ID),
				slog.String("wallet_id", hold.WalletID),
				slog.Any("error", err),
			)
			errs = append(errs, err)
		}
	}
	return res, errors.Join(errs...)
}
