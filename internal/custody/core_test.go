package custody

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletcore/internal/apperr"
	"github.com/congo-pay/walletcore/internal/clock"
	"github.com/congo-pay/walletcore/internal/ledger"
	"github.com/congo-pay/walletcore/internal/logging"
	"github.com/congo-pay/walletcore/internal/ratelock"
	"github.com/congo-pay/walletcore/internal/reservation"
	"github.com/congo-pay/walletcore/internal/store/memory"
	"github.com/congo-pay/walletcore/internal/wallet"
)

func TestCorePurchaseLifecycle(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC))
	core := New(Options{Store: memory.New(), Clock: clk, Logger: logging.Discard()})
	ctx := context.Background()

	require.NoError(t, core.Ping(ctx))

	w, err := core.Wallets.Create(ctx, wallet.CreateInput{OwnerID: "client-42", Currency: "XOF"})
	require.NoError(t, err)
	_, err = core.Wallets.Deposit(ctx, w.ID, 1000, "mobile-money")
	require.NoError(t, err)

	lock, err := core.LockRate(ctx, ratelock.CreateInput{Base: "EUR", Quote: "XOF", Rate: decimal.RequireFromString("655.957"), TTL: 10 * time.Minute})
	require.NoError(t, err)

	first, err := core.PlaceReservation(ctx, w.ID, lock.ID, 400)
	require.NoError(t, err)
	second, err := core.PlaceReservation(ctx, w.ID, lock.ID, 100)
	require.NoError(t, err)

	bal, err := core.GetWalletBalance(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, wallet.Balance{WalletID: w.ID, Currency: "XOF", Balance: 1000, AvailableBalance: 500, AsOf: clk.Now()}, bal)

	clk.Advance(time.Minute)
	_, err = core.CaptureReservation(ctx, first.ID, 350, 50)
	require.NoError(t, err)
	require.NoError(t, core.ReleaseReservation(ctx, second.ID, reservation.ReasonManualCancel))

	bal, err = core.GetWalletBalance(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), bal.Balance)
	assert.Equal(t, int64(600), bal.AvailableBalance)

	h, err := core.GetBalanceHistory(ctx, w.ID, ledger.TimeRange{})
	require.NoError(t, err)
	require.Len(t, h.Entries, 3)
	require.Len(t, h.Days, 1)
	assert.Equal(t, int64(600), h.Days[0].Balance)
	assert.Equal(t, int64(600), h.Days[0].AvailableBalance)
	assert.Equal(t, 3, h.Days[0].TransactionCount)

	drifted, err := core.Wallets.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifted)

	err = core.ReleaseReservation(ctx, first.ID, reservation.ReasonExpired)
	assert.True(t, apperr.Is(err, apperr.KindReservationNotPending), "got %v", err)
}

func TestCoreReaperExpiresAbandonedHold(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC))
	core := New(Options{Store: memory.New(), Clock: clk, Logger: logging.Discard()})
	ctx := context.Background()

	w, err := core.Wallets.Create(ctx, wallet.CreateInput{OwnerID: "client-42", Currency: "XOF"})
	require.NoError(t, err)
	_, err = core.Wallets.Deposit(ctx, w.ID, 1000, "")
	require.NoError(t, err)
	lock, err := core.LockRate(ctx, ratelock.CreateInput{Base: "XOF", Rate: decimal.NewFromInt(1), TTL: 10 * time.Minute})
	require.NoError(t, err)
	r, err := core.PlaceReservation(ctx, w.ID, lock.ID, 400)
	require.NoError(t, err)

	clk.Advance(11 * time.Minute)
	res, err := core.Reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Released)

	got, err := core.Reservations.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "expired", string(got.Status))

	bal, _ := core.GetWalletBalance(ctx, w.ID)
	assert.Equal(t, int64(1000), bal.Balance)
	assert.Equal(t, int64(1000), bal.AvailableBalance)
}
