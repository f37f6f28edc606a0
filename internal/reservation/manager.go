// Package reservation places, captures and releases holds on wallet funds.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/walletcore/internal/apperr"
	"github.com/congo-pay/walletcore/internal/clock"
	"github.com/congo-pay/walletcore/internal/ledger"
	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/notification"
	"github.com/congo-pay/walletcore/internal/ratelock"
	"github.com/congo-pay/walletcore/internal/store"
	"github.com/congo-pay/walletcore/internal/walletlock"
)

// Reason explains why a hold is released.
type Reason string

const (
	ReasonManualCancel Reason = "manual_cancel"
	ReasonExpired      Reason = "expired"
)

// ErrUnknownReason is returned by Release for a reason other than the two above.
var ErrUnknownReason = errors.New("unknown release reason")

// CaptureResult identifies the ledger entries a capture produced.
// ServiceFeeLedgerID is empty when the fee was zero.
type CaptureResult struct {
	ReservationID      string
	PurchaseLedgerID   string
	ServiceFeeLedgerID string
}

// Manager owns the reservation lifecycle. Every transition of a wallet's
// holds runs under that wallet's lock in a single unit of work.
type Manager struct {
	store     store.Store
	ledger    *ledger.Ledger
	rateLocks *ratelock.Service
	guard     walletlock.Guard
	clock     clock.Clock
	logger    *slog.Logger
	notifier  notification.Notifier
}

func NewManager(st store.Store, led *ledger.Ledger, rateLocks *ratelock.Service, guard walletlock.Guard, clk clock.Clock, logger *slog.Logger) *Manager {
	return &Manager{store: st, ledger: led, rateLocks: rateLocks, guard: guard, clock: clk, logger: logger}
}

// SetNotifier registers where committed captures and releases are announced.
// Without one nothing is sent.
func (m *Manager) SetNotifier(n notification.Notifier) {
	m.notifier = n
}

// notify runs after commit; a delivery failure is logged and never undoes
// the change.
func (m *Manager) notify(ctx context.Context, msg notification.Message) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Send(ctx, msg); err != nil {
		m.logger.Warn("notification failed",
			slog.String("kind", msg.Kind),
			slog.String("reservation_id", msg.ReservationID),
			slog.Any("error", err),
		)
	}
}

// Get returns a reservation by id.
func (m *Manager) Get(ctx context.Context, id string) (models.Reservation, error) {
	r, err := m.store.GetReservation(ctx, id)
	if err != nil {
		return models.Reservation{}, reservationErr("reservation.Get", id, err)
	}
	return r, nil
}

// Place holds amount of the wallet's available balance against rateLockID.
// The lock's expiry is read inside the same unit of work that writes the hold.
func (m *Manager) Place(ctx context.Context, walletID, rateLockID string, amount int64) (models.Reservation, error) {
	const op = "reservation.Place"
	if amount <= 0 {
		return models.Reservation{}, apperr.Errorf(apperr.KindInvalidAmount, op, "amount must be positive, got %d", amount)
	}

	var placed models.Reservation
	err := m.guard.Mutate(ctx, op, walletID, func(ctx context.Context, tx store.Tx) error {
		now := m.clock.Now()
		lock, err := m.rateLocks.WithTx(tx).Get(ctx, rateLockID)
		if err != nil {
			return err
		}
		if lock.IsExpired(now) {
			return apperr.Errorf(apperr.KindRateLockExpired, op, "rate lock %s expired at %s", lock.ID, lock.ExpiresAt.Format(time.RFC3339))
		}

		w, err := tx.GetWallet(ctx, walletID)
		if err != nil {
			return walletErr(op, walletID, err)
		}
		if w.AvailableBalance < amount {
			return apperr.Errorf(apperr.KindInsufficientFunds, op, "available %d, requested %d", w.AvailableBalance, amount)
		}
		w.AvailableBalance -= amount
		w.UpdatedAt = now
		if _, err := tx.UpdateWallet(ctx, w); err != nil {
			return err
		}

		placed = models.Reservation{
			ID:         uuid.NewString(),
			WalletID:   walletID,
			RateLockID: lock.ID,
			Amount:     amount,
			Status:     models.ReservationPending,
			CreatedAt:  now,
		}
		return tx.CreateReservation(ctx, placed)
	})
	if err != nil {
		return models.Reservation{}, err
	}

	m.logger.Info("reservation placed",
		slog.String("reservation_id", placed.ID),
		slog.String("wallet_id", walletID),
		slog.String("rate_lock_id", rateLockID),
		slog.Int64("amount", amount),
	)
	return placed, nil
}

// Capture settles a pending hold as a Purchase entry and a ServiceFee entry.
// If the rate lock has expired the hold is released as expired instead and
// RateLockExpired is returned.
func (m *Manager) Capture(ctx context.Context, reservationID string, purchaseAmount, serviceFee int64) (CaptureResult, error) {
	const op = "reservation.Capture"
	if purchaseAmount <= 0 || serviceFee < 0 {
		return CaptureResult{}, apperr.Errorf(apperr.KindInvalidAmount, op,
			"purchase must be positive and fee non-negative, got %d and %d", purchaseAmount, serviceFee)
	}

	current, err := m.Get(ctx, reservationID)
	if err != nil {
		return CaptureResult{}, err
	}

	var (
		result      CaptureResult
		lockExpired bool
	)
	err = m.guard.Mutate(ctx, op, current.WalletID, func(ctx context.Context, tx store.Tx) error {
		lockExpired = false
		r, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			return reservationErr(op, reservationID, err)
		}
		if r.Status != models.ReservationPending {
			return apperr.Errorf(apperr.KindReservationNotPending, op, "reservation %s is %s", r.ID, r.Status)
		}
		if purchaseAmount+serviceFee != r.Amount {
			return apperr.Errorf(apperr.KindAmountMismatch, op,
				"purchase %d + fee %d != reserved %d", purchaseAmount, serviceFee, r.Amount)
		}

		now := m.clock.Now()
		lock, err := m.rateLocks.WithTx(tx).Get(ctx, r.RateLockID)
		if err != nil {
			return err
		}
		if lock.IsExpired(now) {
			lockExpired = true
			return apperr.Errorf(apperr.KindRateLockExpired, op, "rate lock %s expired", lock.ID)
		}

		w, err := tx.GetWallet(ctx, r.WalletID)
		if err != nil {
			return walletErr(op, r.WalletID, err)
		}

		led := m.ledger.WithTx(tx)
		purchase, err := led.Append(ctx, models.LedgerEntry{
			WalletID:       r.WalletID,
			Type:           models.TransactionPurchase,
			Amount:         -purchaseAmount,
			Currency:       w.Currency,
			CompletionType: models.CompletionPurchased,
			ReservationID:  r.ID,
			Reference:      lock.ID,
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		r.PurchaseLedgerID = purchase.ID

		if serviceFee > 0 {
			fee, err := led.Append(ctx, models.LedgerEntry{
				WalletID:       r.WalletID,
				Type:           models.TransactionServiceFee,
				Amount:         -serviceFee,
				Currency:       w.Currency,
				CompletionType: models.CompletionPurchased,
				ReservationID:  r.ID,
				Reference:      lock.ID,
				CreatedAt:      now,
			})
			if err != nil {
				return err
			}
			r.ServiceFeeLedgerID = fee.ID
		}

		w.Balance -= r.Amount
		w.UpdatedAt = now
		if _, err := tx.UpdateWallet(ctx, w); err != nil {
			return err
		}

		r.Status = models.ReservationCaptured
		r.CompletionType = models.CompletionPurchased
		r.ResolvedAt = &now
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}

		result = CaptureResult{ReservationID: r.ID, PurchaseLedgerID: r.PurchaseLedgerID, ServiceFeeLedgerID: r.ServiceFeeLedgerID}
		return nil
	})

	if lockExpired {
		if relErr := m.Release(ctx, reservationID, ReasonExpired); relErr != nil && !apperr.Is(relErr, apperr.KindReservationNotPending) {
			return CaptureResult{}, fmt.Errorf("release after expired capture: %w", relErr)
		}
		return CaptureResult{}, err
	}
	if err != nil {
		return CaptureResult{}, err
	}

	m.logger.Info("reservation captured",
		slog.String("reservation_id", reservationID),
		slog.String("wallet_id", current.WalletID),
		slog.Int64("purchase", purchaseAmount),
		slog.Int64("service_fee", serviceFee),
	)
	m.notify(ctx, notification.Message{
		Kind:          notification.KindReservationCaptured,
		WalletID:      current.WalletID,
		ReservationID: reservationID,
		Amount:        current.Amount,
	})
	return result, nil
}

// Release returns a pending hold to the available balance without touching
// the ledger.
func (m *Manager) Release(ctx context.Context, reservationID string, reason Reason) error {
	const op = "reservation.Release"

	status, completion, err := reason.outcome()
	if err != nil {
		return err
	}
	current, err := m.Get(ctx, reservationID)
	if err != nil {
		return err
	}

	err = m.guard.Mutate(ctx, op, current.WalletID, func(ctx context.Context, tx store.Tx) error {
		r, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			return reservationErr(op, reservationID, err)
		}
		if r.Status != models.ReservationPending {
			return apperr.Errorf(apperr.KindReservationNotPending, op, "reservation %s is %s", r.ID, r.Status)
		}

		w, err := tx.GetWallet(ctx, r.WalletID)
		if err != nil {
			return walletErr(op, r.WalletID, err)
		}
		now := m.clock.Now()
		w.AvailableBalance += r.Amount
		w.UpdatedAt = now
		if !w.Consistent() {
			return apperr.Errorf(apperr.KindInvariantViolation, op, "release of %s would leave wallet %s at balance %d, available %d",
				r.ID, w.ID, w.Balance, w.AvailableBalance)
		}
		if _, err := tx.UpdateWallet(ctx, w); err != nil {
			return err
		}

		r.Status = status
		r.CompletionType = completion
		r.ResolvedAt = &now
		return tx.UpdateReservation(ctx, r)
	})
	if err != nil {
		return err
	}

	m.logger.Info("reservation released",
		slog.String("reservation_id", reservationID),
		slog.String("wallet_id", current.WalletID),
		slog.String("reason", string(reason)),
		slog.Int64("amount", current.Amount),
	)
	kind := notification.KindReservationCancelled
	if reason == ReasonExpired {
		kind = notification.KindReservationExpired
	}
	m.notify(ctx, notification.Message{
		Kind:          kind,
		WalletID:      current.WalletID,
		ReservationID: reservationID,
		Amount:        current.Amount,
	})
	return nil
}

func (r Reason) outcome() (models.ReservationStatus, models.CompletionType, error) {
	switch r {
	case ReasonManualCancel:
		return models.ReservationReleased, models.CompletionCancelled, nil
	case ReasonExpired:
		return models.ReservationExpired, models.CompletionExpired, nil
	}
	return "", "", apperr.E(apperr.KindInvalidArgument, "reservation.Release", fmt.Errorf("%w: %q", ErrUnknownReason, string(r)))
}

func reservationErr(op, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Errorf(apperr.KindReservationNotFound, op, "reservation %s", id)
	}
	return apperr.Unavailable(op, err)
}

func walletErr(op, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Errorf(apperr.KindWalletNotFound, op, "wallet %s", id)
	}
	return apperr.Unavailable(op, err)
}
