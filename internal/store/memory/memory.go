// Package memory is a concurrency-safe in-memory store used by tests and by
// walletd when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/store"
)

type data struct {
	wallets      map[string]models.Wallet
	entries      map[string][]models.LedgerEntry
	entryIDs     map[string]struct{}
	rateLocks    map[string]models.RateLock
	reservations map[string]models.Reservation
}

// Store keeps every collection behind one mutex. Units of work hold it for
// their whole duration and undo their writes on failure.
type Store struct {
	mu sync.Mutex
	d  *data
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{d: &data{
		wallets:      make(map[string]models.Wallet),
		entries:      make(map[string][]models.LedgerEntry),
		entryIDs:     make(map[string]struct{}),
		rateLocks:    make(map[string]models.RateLock),
		reservations: make(map[string]models.Reservation),
	}}
}

// WithinTx runs fn with exclusive access, rolling back every write if fn
// returns an error or panics.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var journal []func()
	t := &tx{d: s.d, journal: &journal}
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
		if err != nil {
			t.rollback()
		}
	}()
	return fn(ctx, t)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) view() *tx { return &tx{d: s.d} }

func (s *Store) CreateWallet(ctx context.Context, w models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateWallet(ctx, w)
}

func (s *Store) GetWallet(ctx context.Context, id string) (models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetWallet(ctx, id)
}

func (s *Store) UpdateWallet(ctx context.Context, w models.Wallet) (models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateWallet(ctx, w)
}

func (s *Store) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListWallets(ctx)
}

func (s *Store) AppendEntry(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().AppendEntry(ctx, e)
}

func (s *Store) SumEntries(ctx context.Context, walletID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().SumEntries(ctx, walletID)
}

// StreamEntries snapshots the matching entries and yields them without holding the lock.
func (s *Store) StreamEntries(_ context.Context, q store.EntryQuery, yield func(models.LedgerEntry) bool) error {
	s.mu.Lock()
	matched := s.d.collectEntries(q)
	s.mu.Unlock()
	for _, e := range matched {
		if !yield(e) {
			return nil
		}
	}
	return nil
}

func (s *Store) CreateRateLock(ctx context.Context, l models.RateLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateRateLock(ctx, l)
}

func (s *Store) GetRateLock(ctx context.Context, id string) (models.RateLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetRateLock(ctx, id)
}

func (s *Store) MarkRateLocksExpired(ctx context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().MarkRateLocksExpired(ctx, now)
}

func (s *Store) CreateReservation(ctx context.Context, r models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateReservation(ctx, r)
}

func (s *Store) GetReservation(ctx context.Context, id string) (models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetReservation(ctx, id)
}

func (s *Store) UpdateReservation(ctx context.Context, r models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateReservation(ctx, r)
}

func (s *Store) ListPendingExpired(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListPendingExpired(ctx, now)
}

func (s *Store) ListReservations(ctx context.Context, walletID string) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListReservations(ctx, walletID)
}

func (d *data) collectEntries(q store.EntryQuery) []models.LedgerEntry {
	var out []models.LedgerEntry
	for _, e := range d.entries[q.WalletID] {
		if !q.From.IsZero() && e.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !e.CreatedAt.Before(q.To) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
