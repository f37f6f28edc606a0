// Package custody assembles the wallet core and exposes the operations other
// services call.
package custody

import (
	"context"
	"log/slog"

	"github.com/congo-pay/walletcore/internal/clock"
	"github.com/congo-pay/walletcore/internal/currency"
	"github.com/congo-pay/walletcore/internal/ledger"
	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/notification"
	"github.com/congo-pay/walletcore/internal/ratelock"
	"github.com/congo-pay/walletcore/internal/reaper"
	"github.com/congo-pay/walletcore/internal/reservation"
	"github.com/congo-pay/walletcore/internal/store"
	"github.com/congo-pay/walletcore/internal/wallet"
	"github.com/congo-pay/walletcore/internal/walletlock"
)

// Options carries the collaborators and tuning for New. Zero tuning values
// fall back to each component's defaults.
type Options struct {
	Store    store.Store
	Locker   walletlock.Locker
	Clock    clock.Clock
	Registry *currency.Registry
	Logger   *slog.Logger
	// Notifier receives committed capture and release events; defaults to
	// logging them.
	Notifier        notification.Notifier
	ConflictRetries int
	RateLocks       ratelock.Config
	Reaper          reaper.Config
}

// Core is the composed wallet core.
type Core struct {
	Wallets      *wallet.Service
	Reservations *reservation.Manager
	RateLocks    *ratelock.Service
	Reaper       *reaper.Reaper

	store store.Store
}

// New wires every component over one store and one locker.
func New(opts Options) *Core {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Registry == nil {
		opts.Registry = currency.Default()
	}
	if opts.Locker == nil {
		opts.Locker = walletlock.NewLocal()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = notification.NewLoggerNotifier(opts.Logger.With(slog.String("component", "notification")))
	}

	led := ledger.New(opts.Store, opts.Clock)
	guard := walletlock.Guard{Store: opts.Store, Locker: opts.Locker, Retries: opts.ConflictRetries}
	locks := ratelock.NewService(opts.Store, opts.Registry, opts.Clock, opts.RateLocks, opts.Logger.With(slog.String("component", "ratelock")))
	manager := reservation.NewManager(opts.Store, led, locks, guard, opts.Clock, opts.Logger.With(slog.String("component", "reservation")))
	manager.SetNotifier(opts.Notifier)

	return &Core{
		Wallets:      wallet.NewService(opts.Store, led, guard, opts.Registry, opts.Clock, opts.Logger.With(slog.String("component", "wallet"))),
		Reservations: manager,
		RateLocks:    locks,
		Reaper:       reaper.New(locks, opts.Store, manager, opts.Clock, opts.Reaper, opts.Logger.With(slog.String("component", "reaper"))),
		store:        opts.Store,
	}
}

func (c *Core) LockRate(ctx context.Context, in ratelock.CreateInput) (models.RateLock, error) {
	return c.RateLocks.Create(ctx, in)
}

func (c *Core) PlaceReservation(ctx context.Context, walletID, rateLockID string, amount int64) (models.Reservation, error) {
	return c.Reservations.Place(ctx, walletID, rateLockID, amount)
}

func (c *Core) CaptureReservation(ctx context.Context, reservationID string, purchaseAmount, serviceFee int64) (reservation.CaptureResult, error) {
	return c.Reservations.Capture(ctx, reservationID, purchaseAmount, serviceFee)
}

func (c *Core) ReleaseReservation(ctx context.Context, reservationID string, reason reservation.Reason) error {
	return c.Reservations.Release(ctx, reservationID, reason)
}

func (c *Core) GetWalletBalance(ctx context.Context, walletID string) (wallet.Balance, error) {
	return c.Wallets.Balance(ctx, walletID)
}

// GetBalanceHistory returns the statement and daily rollup for r.
func (c *Core) GetBalanceHistory(ctx context.Context, walletID string, r ledger.TimeRange) (wallet.History, error) {
	return c.Wallets.History(ctx, walletID, r.From, r.To)
}

// Ping reports whether the backing store is reachable.
func (c *Core) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
