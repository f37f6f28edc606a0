package walletlock

import (
	"context"
	"errors"

	"github.com/congo-pay/walletcore/internal/apperr"
	"github.com/congo-pay/walletcore/internal/store"
)

// DefaultRetries bounds optimistic retries when the caller does not configure it.
const DefaultRetries = 3

// Guard runs wallet mutations under the wallet's lock inside one unit of
// work, retrying the whole unit when the version check fails.
type Guard struct {
	Store   store.Store
	Locker  Locker
	Retries int
}

// Mutate holds walletID's lock while fn runs in a transaction. Lock timeouts
// and exhausted version retries surface as ConcurrencyConflict; other
// untyped failures as StoreUnavailable.
func (g Guard) Mutate(ctx context.Context, op, walletID string, fn func(ctx context.Context, tx store.Tx) error) error {
	release, err := g.Locker.Acquire(ctx, walletID)
	if err != nil {
		return classify(op, err)
	}
	defer release()

	retries := g.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}
	err = store.RetryOnConflict(ctx, retries, func() error {
		return g.Store.WithinTx(ctx, fn)
	})
	return classify(op, err)
}

func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrVersionConflict), errors.Is(err, ErrTimeout):
		return apperr.E(apperr.KindConcurrencyConflict, op, err)
	}
	return apperr.Unavailable(op, err)
}
