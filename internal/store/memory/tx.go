package memory

import (
	"context"
	"sort"
	"time"

	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/store"
)

// tx operates on data with the store mutex already held. When journal is
// non-nil every write records how to undo itself.
type tx struct {
	d       *data
	journal *[]func()
}

func (t *tx) record(undo func()) {
	if t.journal != nil {
		*t.journal = append(*t.journal, undo)
	}
}

func (t *tx) rollback() {
	if t.journal == nil {
		return
	}
	for i := len(*t.journal) - 1; i >= 0; i-- {
		(*t.journal)[i]()
	}
	*t.journal = nil
}

func (t *tx) CreateWallet(_ context.Context, w models.Wallet) error {
	if _, exists := t.d.wallets[w.ID]; exists {
		return store.ErrAlreadyExists
	}
	t.d.wallets[w.ID] = w
	t.record(func() { delete(t.d.wallets, w.ID) })
	return nil
}

func (t *tx) GetWallet(_ context.Context, id string) (models.Wallet, error) {
	w, ok := t.d.wallets[id]
	if !ok {
		return models.Wallet{}, store.ErrNotFound
	}
	return w, nil
}

func (t *tx) UpdateWallet(_ context.Context, w models.Wallet) (models.Wallet, error) {
	prev, ok := t.d.wallets[w.ID]
	if !ok {
		return models.Wallet{}, store.ErrNotFound
	}
	if prev.Version != w.Version {
		return models.Wallet{}, store.ErrVersionConflict
	}
	w.Version++
	t.d.wallets[w.ID] = w
	t.record(func() { t.d.wallets[prev.ID] = prev })
	return w, nil
}

func (t *tx) ListWallets(context.Context) ([]models.Wallet, error) {
	out := make([]models.Wallet, 0, len(t.d.wallets))
	for _, w := range t.d.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) AppendEntry(_ context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	if _, exists := t.d.entryIDs[e.ID]; exists {
		return models.LedgerEntry{}, store.ErrAlreadyExists
	}
	list := t.d.entries[e.WalletID]
	e.Sequence = int64(len(list)) + 1
	t.d.entries[e.WalletID] = append(list, e)
	t.d.entryIDs[e.ID] = struct{}{}
	t.record(func() {
		t.d.entries[e.WalletID] = list
		delete(t.d.entryIDs, e.ID)
	})
	return e, nil
}

func (t *tx) SumEntries(_ context.Context, walletID string) (int64, error) {
	var sum int64
	for _, e := range t.d.entries[walletID] {
		sum += e.Amount
	}
	return sum, nil
}

func (t *tx) StreamEntries(_ context.Context, q store.EntryQuery, yield func(models.LedgerEntry) bool) error {
	for _, e := range t.d.collectEntries(q) {
		if !yield(e) {
			return nil
		}
	}
	return nil
}

func (t *tx) CreateRateLock(_ context.Context, l models.RateLock) error {
	if _, exists := t.d.rateLocks[l.ID]; exists {
		return store.ErrAlreadyExists
	}
	t.d.rateLocks[l.ID] = l
	t.record(func() { delete(t.d.rateLocks, l.ID) })
	return nil
}

func (t *tx) GetRateLock(_ context.Context, id string) (models.RateLock, error) {
	l, ok := t.d.rateLocks[id]
	if !ok {
		return models.RateLock{}, store.ErrNotFound
	}
	return l, nil
}

func (t *tx) MarkRateLocksExpired(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	for id, l := range t.d.rateLocks {
		if l.ExpiredAt != nil || !l.ExpiresAt.Before(now) {
			continue
		}
		prev := l
		stamp := now
		l.ExpiredAt = &stamp
		t.d.rateLocks[id] = l
		t.record(func() { t.d.rateLocks[prev.ID] = prev })
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *tx) CreateReservation(_ context.Context, r models.Reservation) error {
	if _, exists := t.d.reservations[r.ID]; exists {
		return store.ErrAlreadyExists
	}
	t.d.reservations[r.ID] = r
	t.record(func() { delete(t.d.reservations, r.ID) })
	return nil
}

func (t *tx) GetReservation(_ context.Context, id string) (models.Reservation, error) {
	r, ok := t.d.reservations[id]
	if !ok {
		return models.Reservation{}, store.ErrNotFound
	}
	return r, nil
}

func (t *tx) UpdateReservation(_ context.Context, r models.Reservation) error {
	prev, ok := t.d.reservations[r.ID]
	if !ok {
		return store.ErrNotFound
	}
	t.d.reservations[r.ID] = r
	t.record(func() { t.d.reservations[prev.ID] = prev })
	return nil
}

func (t *tx) ListPendingExpired(_ context.Context, now time.Time) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, r := range t.d.reservations {
		if r.Status != models.ReservationPending {
			continue
		}
		l, ok := t.d.rateLocks[r.RateLockID]
		if !ok {
			continue
		}
		if l.ExpiredAt != nil || l.ExpiresAt.Before(now) {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

func (t *tx) ListReservations(_ context.Context, walletID string) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, r := range t.d.reservations {
		if r.WalletID == walletID {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

func sortReservations(rs []models.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].CreatedAt.Before(rs[j].CreatedAt)
	})
}
