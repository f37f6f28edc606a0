package store

import (
	"context"
	"errors"
)

// RetryOnConflict runs fn up to attempts times while it fails with
// ErrVersionConflict. The last conflict is returned when attempts run out.
func RetryOnConflict(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
	}
	return err
}
