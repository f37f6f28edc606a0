// Package store defines the persistence contract the wallet core runs on.
// Implementations live in store/memory and store/postgres.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/congo-pay/walletcore/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned by UpdateWallet when the stored version
	// no longer matches the one the caller read.
	ErrVersionConflict = errors.New("version conflict")
	// ErrAlreadyExists is returned when inserting a duplicate id.
	ErrAlreadyExists = errors.New("already exists")
)

// WalletStore persists wallets with optimistic concurrency on Version.
type WalletStore interface {
	CreateWallet(ctx context.Context, w models.Wallet) error
	GetWallet(ctx context.Context, id string) (models.Wallet, error)
	// UpdateWallet writes w when the stored version equals w.Version and
	// returns the row with its version incremented.
	UpdateWallet(ctx context.Context, w models.Wallet) (models.Wallet, error)
	ListWallets(ctx context.Context) ([]models.Wallet, error)
}

// EntryQuery scopes a ledger scan. Zero times leave that side unbounded; To is exclusive.
type EntryQuery struct {
	WalletID string
	From     time.Time
	To       time.Time
}

// LedgerStore is the append-only entry log.
type LedgerStore interface {
	// AppendEntry stores e and returns it with its per-wallet Sequence assigned.
	AppendEntry(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error)
	SumEntries(ctx context.Context, walletID string) (int64, error)
	// StreamEntries calls yield for each matching entry in (CreatedAt, Sequence)
	// order until yield returns false.
	StreamEntries(ctx context.Context, q EntryQuery, yield func(models.LedgerEntry) bool) error
}

// RateLockStore persists rate locks.
type RateLockStore interface {
	CreateRateLock(ctx context.Context, l models.RateLock) error
	GetRateLock(ctx context.Context, id string) (models.RateLock, error)
	// MarkRateLocksExpired stamps ExpiredAt on every lock with ExpiresAt before
	// now that is not yet marked, and returns their ids.
	MarkRateLocksExpired(ctx context.Context, now time.Time) ([]string, error)
}

// ReservationStore persists reservations.
type ReservationStore interface {
	CreateReservation(ctx context.Context, r models.Reservation) error
	GetReservation(ctx context.Context, id string) (models.Reservation, error)
	UpdateReservation(ctx context.Context, r models.Reservation) error
	// ListPendingExpired returns pending reservations whose rate lock expired before now
	// or was already marked expired.
	ListPendingExpired(ctx context.Context, now time.Time) ([]models.Reservation, error)
	ListReservations(ctx context.Context, walletID string) ([]models.Reservation, error)
}

// Tx is the full capability set available inside a unit of work.
type Tx interface {
	WalletStore
	LedgerStore
	RateLockStore
	ReservationStore
}

// Store exposes the capabilities directly and as an atomic unit of work.
type Store interface {
	Tx
	// WithinTx runs fn atomically. Either every write made through tx is
	// committed or none is. Wallet rows read through tx are locked for the
	// rest of the unit of work where the backend supports it.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}
