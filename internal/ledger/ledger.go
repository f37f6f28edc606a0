// Package ledger is the append-only record of money movements per wallet.
// Sums of entries are the ground truth that cached wallet balances are
// reconciled against.
package ledger

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/walletcore/internal/apperr"
	"github.com/congo-pay/walletcore/internal/clock"
	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/store"
)

// Backend is the slice of the store the ledger reads and writes.
type Backend interface {
	store.WalletStore
	store.LedgerStore
}

// TimeRange bounds a history scan. A zero bound is open; To is exclusive.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Ledger appends and reads entries. It does not touch cached wallet
// balances; callers update those in the same unit of work.
type Ledger struct {
	backend Backend
	clock   clock.Clock
}

func New(backend Backend, clk clock.Clock) *Ledger {
	return &Ledger{backend: backend, clock: clk}
}

// WithTx returns a Ledger bound to a unit of work.
func (l *Ledger) WithTx(tx store.Tx) *Ledger {
	return &Ledger{backend: tx, clock: l.clock}
}

// Append validates e against its wallet and stores it. ID and CreatedAt are
// filled in when empty; Currency defaults to the wallet's.
func (l *Ledger) Append(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	const op = "ledger.Append"

	if e.Amount == 0 {
		return models.LedgerEntry{}, apperr.Errorf(apperr.KindInvalidAmount, op, "amount must be non-zero")
	}
	if !e.Type.Valid() {
		return models.LedgerEntry{}, apperr.Errorf(apperr.KindInvalidAmount, op, "unknown transaction type %q", e.Type)
	}
	if credit := e.Type == models.TransactionDeposit; credit != (e.Amount > 0) {
		return models.LedgerEntry{}, apperr.Errorf(apperr.KindInvalidAmount, op, "%s amount has wrong sign: %d", e.Type, e.Amount)
	}

	w, err := l.backend.GetWallet(ctx, e.WalletID)
	if err != nil {
		return models.LedgerEntry{}, walletErr(op, e.WalletID, err)
	}
	switch {
	case e.Currency == "":
		e.Currency = w.Currency
	case e.Currency != w.Currency:
		return models.LedgerEntry{}, apperr.Errorf(apperr.KindInvalidAmount, op,
			"currency %s does not match wallet currency %s", e.Currency, w.Currency)
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.clock.Now()
	}

	stored, err := l.backend.AppendEntry(ctx, e)
	if err != nil {
		return models.LedgerEntry{}, apperr.Unavailable(op, err)
	}
	return stored, nil
}

// BalanceOf recomputes the settled balance as the sum of every entry.
func (l *Ledger) BalanceOf(ctx context.Context, walletID string) (int64, error) {
	const op = "ledger.BalanceOf"
	if _, err := l.backend.GetWallet(ctx, walletID); err != nil {
		return 0, walletErr(op, walletID, err)
	}
	sum, err := l.backend.SumEntries(ctx, walletID)
	if err != nil {
		return 0, apperr.Unavailable(op, err)
	}
	return sum, nil
}

// EntriesFor lazily yields the wallet's entries in r ordered by time then
// sequence. A store failure is yielded once as the final element.
func (l *Ledger) EntriesFor(ctx context.Context, walletID string, r TimeRange) iter.Seq2[models.LedgerEntry, error] {
	return func(yield func(models.LedgerEntry, error) bool) {
		if !r.From.IsZero() && !r.To.IsZero() && !r.To.After(r.From) {
			return
		}
		stopped := false
		err := l.backend.StreamEntries(ctx, store.EntryQuery{WalletID: walletID, From: r.From, To: r.To},
			func(e models.LedgerEntry) bool {
				if !yield(e, nil) {
					stopped = true
					return false
				}
				return true
			})
		if err != nil && !stopped {
			yield(models.LedgerEntry{}, apperr.Unavailable("ledger.EntriesFor", err))
		}
	}
}

func walletErr(op, walletID string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Errorf(apperr.KindWalletNotFound, op, "wallet %s", walletID)
	}
	return apperr.Unavailable(op, err)
}
