package wallet

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletcore/internal/apperr"
	"github.com/congo-pay/walletcore/internal/clock"
	"github.com/congo-pay/walletcore/internal/currency"
	"github.com/congo-pay/walletcore/internal/ledger"
	"github.com/congo-pay/walletcore/internal/logging"
	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/store/memory"
	"github.com/congo-pay/walletcore/internal/walletlock"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store, *clock.Fake) {
	t.Helper()
	st := memory.New()
	clk := clock.NewFake(t0)
	guard := walletlock.Guard{Store: st, Locker: walletlock.NewLocal(), Retries: 3}
	svc := NewService(st, ledger.New(st, clk), guard, currency.Default(), clk, logging.Discard())
	return svc, st, clk
}

func TestServiceCreateAndBalance(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	ownerID := uuid.NewString()

	wallet, err := svc.Create(ctx, CreateInput{OwnerID: ownerID, Currency: "xof"})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if wallet.Currency != "XOF" {
		t.Fatalf("expected currency XOF, got %s", wallet.Currency)
	}

	fetched, err := svc.Get(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if fetched.ID != wallet.ID || fetched.OwnerID != ownerID {
		t.Fatalf("expected wallet ID %s, got %s", wallet.ID, fetched.ID)
	}

	if _, err := svc.Deposit(ctx, wallet.ID, 2_500, "topup-1"); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	balance, err := svc.Balance(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Balance != 2_500 || balance.AvailableBalance != 2_500 {
		t.Fatalf("expected balance 2500/2500, got %d/%d", balance.Balance, balance.AvailableBalance)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{OwnerID: " "})
	require.ErrorIs(t, err, ErrOwnerRequired)

	_, err = svc.Create(ctx, CreateInput{OwnerID: "client", Currency: "JPY"})
	require.True(t, apperr.Is(err, apperr.KindUnsupportedCurrency), "got %v", err)

	w, err := svc.Create(ctx, CreateInput{OwnerID: "client"})
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, w.Currency)

	_, err = svc.Get(ctx, "missing")
	require.True(t, apperr.Is(err, apperr.KindWalletNotFound), "got %v", err)
}

func TestServiceWithdraw(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	w, err := svc.Create(ctx, CreateInput{OwnerID: "client", Currency: "XOF"})
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, w.ID, 1_000, "")
	require.NoError(t, err)

	entry, err := svc.Withdraw(ctx, w.ID, 300, "atm")
	require.NoError(t, err)
	assert.Equal(t, int64(-300), entry.Amount)
	assert.Equal(t, models.TransactionWithdrawal, entry.Type)

	_, err = svc.Withdraw(ctx, w.ID, 701, "")
	require.True(t, apperr.Is(err, apperr.KindInsufficientFunds), "got %v", err)

	_, err = svc.Deposit(ctx, w.ID, 0, "")
	require.True(t, apperr.Is(err, apperr.KindInvalidAmount), "got %v", err)

	got, err := st.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	sum, err := st.SumEntries(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), got.Balance)
	assert.Equal(t, got.Balance, sum)
	assert.True(t, got.Consistent())
}

func TestServiceConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	w, err := svc.Create(ctx, CreateInput{OwnerID: "client", Currency: "XOF"})
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, w.ID, 1_000, "")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Withdraw(ctx, w.ID, 150, ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, succeeded)
	got, _ := st.GetWallet(ctx, w.ID)
	assert.Equal(t, int64(100), got.Balance)
	assert.Equal(t, int64(100), got.AvailableBalance)
}

func TestServiceReconcile(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	w, err := svc.Create(ctx, CreateInput{OwnerID: "client", Currency: "XOF"})
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, w.ID, 500, "")
	require.NoError(t, err)

	d, err := svc.Reconcile(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, d.OK())

	// corrupt the cache behind the service's back
	cur, _ := st.GetWallet(ctx, w.ID)
	cur.Balance, cur.AvailableBalance = 900, 900
	_, err = st.UpdateWallet(ctx, cur)
	require.NoError(t, err)

	drifted, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, drifted, 1)
	assert.Equal(t, int64(900), drifted[0].CachedTotal)
	assert.Equal(t, int64(500), drifted[0].LedgerTotal)
}

func TestServiceHistoryDailyRollup(t *testing.T) {
	svc, st, clk := newTestService(t)
	ctx := context.Background()
	w, err := svc.Create(ctx, CreateInput{OwnerID: "client", Currency: "XOF"})
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, w.ID, 1_000, "") // day 1, 09:00
	require.NoError(t, err)
	clk.Advance(2 * time.Hour)
	_, err = svc.Withdraw(ctx, w.ID, 200, "") // day 1, 11:00
	require.NoError(t, err)

	// a hold placed on day 2 and still open
	clk.Advance(24 * time.Hour)
	cur, _ := st.GetWallet(ctx, w.ID)
	cur.AvailableBalance -= 300
	_, err = st.UpdateWallet(ctx, cur)
	require.NoError(t, err)
	require.NoError(t, st.CreateReservation(ctx, models.Reservation{
		ID: "r1", WalletID: w.ID, RateLockID: "rl", Amount: 300,
		Status: models.ReservationPending, CreatedAt: clk.Now(),
	}))

	clk.Advance(24 * time.Hour)
	_, err = svc.Deposit(ctx, w.ID, 50, "") // day 3
	require.NoError(t, err)

	h, err := svc.History(ctx, w.ID, time.Time{}, t0.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, h.Entries, 3)
	require.Len(t, h.Days, 4)

	assert.Equal(t, DailyBalance{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Balance: 800, AvailableBalance: 800, TransactionCount: 2}, h.Days[0])
	assert.Equal(t, DailyBalance{Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Balance: 800, AvailableBalance: 500, TransactionCount: 0}, h.Days[1])
	assert.Equal(t, DailyBalance{Date: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), Balance: 850, AvailableBalance: 550, TransactionCount: 1}, h.Days[2])
	assert.Equal(t, int64(550), h.Days[3].AvailableBalance)

	// a later window starts from the opening balance
	later, err := svc.History(ctx, w.ID, t0.Add(24*time.Hour), t0.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(800), later.OpeningBalance)
	assert.Empty(t, later.Entries)
}

func TestServiceDepositRejectsBalanceOverflow(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	w, err := svc.Create(ctx, CreateInput{OwnerID: "client-1", Currency: "XOF"})
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, w.ID, math.MaxInt64, "")
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, w.ID, 1, "")
	require.True(t, apperr.Is(err, apperr.KindInvalidAmount), "got %v", err)
	assert.False(t, apperr.IsRetryable(err))

	bal, err := svc.Balance(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), bal.Balance)
	assert.Equal(t, int64(math.MaxInt64), bal.AvailableBalance)

	sum, err := svc.ledger.BalanceOf(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), sum)
}
