package wallet

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/congo-pay/walletcore/internal/apperr"
	"github.com/congo-pay/walletcore/internal/clock"
	"github.com/congo-pay/walletcore/internal/currency"
	"github.com/congo-pay/walletcore/internal/ledger"
	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/store"
	"github.com/congo-pay/walletcore/internal/walletlock"
)

// DefaultCurrency is used when a wallet is created without one.
const DefaultCurrency = "XAF"

// ErrOwnerRequired is returned by Create when no owner reference is given.
var ErrOwnerRequired = errors.New("owner id is required")

// Service exposes wallet lifecycle, funding and read-side operations.
type Service struct {
	store    store.Store
	ledger   *ledger.Ledger
	guard    walletlock.Guard
	registry *currency.Registry
	clock    clock.Clock
	logger   *slog.Logger
}

// NewService builds a wallet service instance.
func NewService(st store.Store, led *ledger.Ledger, guard walletlock.Guard, registry *currency.Registry, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{store: st, ledger: led, guard: guard, registry: registry, clock: clk, logger: logger}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	OwnerID  string
	Currency string
}

// Create provisions an empty wallet.
func (s *Service) Create(ctx context.Context, input CreateInput) (models.Wallet, error) {
	const op = "wallet.Create"

	ownerID := strings.TrimSpace(input.OwnerID)
	if ownerID == "" {
		return models.Wallet{}, ErrOwnerRequired
	}
	code := input.Currency
	if code == "" {
		code = DefaultCurrency
	}
	cur, err := s.registry.Get(code)
	if err != nil {
		return models.Wallet{}, err
	}

	now := s.clock.Now()
	w := models.Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Currency:  cur.Code,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateWallet(ctx, w); err != nil {
		return models.Wallet{}, apperr.Unavailable(op, err)
	}

	s.logger.Info("wallet created", slog.String("wallet_id", w.ID), slog.String("currency", w.Currency))
	return w, nil
}

// Get retrieves a wallet.
func (s *Service) Get(ctx context.Context, id string) (models.Wallet, error) {
	w, err := s.store.GetWallet(ctx, id)
	if err != nil {
		return models.Wallet{}, notFound("wallet.Get", id, err)
	}
	return w, nil
}

// Balance returns the cached balances of the wallet.
func (s *Service) Balance(ctx context.Context, id string) (Balance, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		WalletID:         w.ID,
		Currency:         w.Currency,
		Balance:          w.Balance,
		AvailableBalance: w.AvailableBalance,
		AsOf:             s.clock.Now(),
	}, nil
}

// Deposit credits amount minor units and records a Deposit entry.
func (s *Service) Deposit(ctx context.Context, walletID string, amount int64, reference string) (models.LedgerEntry, error) {
	return s.post(ctx, "wallet.Deposit", walletID, models.TransactionDeposit, amount, reference)
}

// Withdraw debits amount minor units. Only available funds can be withdrawn.
func (s *Service) Withdraw(ctx context.Context, walletID string, amount int64, reference string) (models.LedgerEntry, error) {
	return s.post(ctx, "wallet.Withdraw", walletID, models.TransactionWithdrawal, amount, reference)
}

func (s *Service) post(ctx context.Context, op, walletID string, typ models.TransactionType, amount int64, reference string) (models.LedgerEntry, error) {
	if amount <= 0 {
		return models.LedgerEntry{}, apperr.Errorf(apperr.KindInvalidAmount, op, "amount must be positive, got %d", amount)
	}
	signed := amount
	if typ == models.TransactionWithdrawal {
		signed = -amount
	}

	var entry models.LedgerEntry
	err := s.guard.Mutate(ctx, op, walletID, func(ctx context.Context, tx store.Tx) error {
		w, err := tx.GetWallet(ctx, walletID)
		if err != nil {
			return notFound(op, walletID, err)
		}
		if signed < 0 && w.AvailableBalance < amount {
			return apperr.Errorf(apperr.KindInsufficientFunds, op, "available %d, requested %d", w.AvailableBalance, amount)
		}
		if signed > 0 && amount > math.MaxInt64-w.Balance {
			return apperr.Errorf(apperr.KindInvalidAmount, op, "deposit of %d overflows balance %d", amount, w.Balance)
		}

		entry, err = s.ledger.WithTx(tx).Append(ctx, models.LedgerEntry{
			WalletID:  walletID,
			Type:      typ,
			Amount:    signed,
			Currency:  w.Currency,
			Reference: reference,
		})
		if err != nil {
			return err
		}

		w.Balance += signed
		w.AvailableBalance += signed
		w.UpdatedAt = entry.CreatedAt
		if !w.Consistent() {
			return apperr.Errorf(apperr.KindInvariantViolation, op, "wallet %s would hold balance %d, available %d",
				w.ID, w.Balance, w.AvailableBalance)
		}
		_, err = tx.UpdateWallet(ctx, w)
		return err
	})
	if err != nil {
		return models.LedgerEntry{}, err
	}

	s.logger.Info("wallet funds posted",
		slog.String("wallet_id", walletID),
		slog.String("type", string(typ)),
		slog.Int64("amount", signed),
		slog.String("entry_id", entry.ID),
	)
	return entry, nil
}

// Reconcile recomputes the wallet's totals from the ledger and its pending
// reservations and reports any disagreement with the cached balances.
func (s *Service) Reconcile(ctx context.Context, walletID string) (Drift, error) {
	const op = "wallet.Reconcile"
	var d Drift
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		w, err := tx.GetWallet(ctx, walletID)
		if err != nil {
			return notFound(op, walletID, err)
		}
		sum, err := tx.SumEntries(ctx, walletID)
		if err != nil {
			return err
		}
		reservations, err := tx.ListReservations(ctx, walletID)
		if err != nil {
			return err
		}
		var held int64
		for _, r := range reservations {
			if r.Status == models.ReservationPending {
				held += r.Amount
			}
		}
		d = Drift{WalletID: walletID, CachedTotal: w.Balance, LedgerTotal: sum, CachedHeld: w.Held(), PendingHolds: held}
		return nil
	})
	if err != nil {
		return Drift{}, apperr.Unavailable(op, err)
	}
	if !d.OK() {
		s.logger.Warn("wallet balance drift detected",
			slog.String("wallet_id", walletID),
			slog.Int64("cached_total", d.CachedTotal),
			slog.Int64("ledger_total", d.LedgerTotal),
			slog.Int64("cached_held", d.CachedHeld),
			slog.Int64("pending_holds", d.PendingHolds),
		)
	}
	return d, nil
}

// ReconcileAll checks every wallet and returns only the ones that drifted.
func (s *Service) ReconcileAll(ctx context.Context) ([]Drift, error) {
	wallets, err := s.store.ListWallets(ctx)
	if err != nil {
		return nil, apperr.Unavailable("wallet.ReconcileAll", err)
	}
	var drifted []Drift
	for _, w := range wallets {
		if err := ctx.Err(); err != nil {
			return drifted, err
		}
		d, err := s.Reconcile(ctx, w.ID)
		if err != nil {
			return drifted, err
		}
		if !d.OK() {
			drifted = append(drifted, d)
		}
	}
	return drifted, nil
}

func notFound(op, walletID string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Errorf(apperr.KindWalletNotFound, op, "wallet %s", walletID)
	}
	return apperr.Unavailable(op, err)
}
