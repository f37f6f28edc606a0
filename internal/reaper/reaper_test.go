package reaper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletcore/internal/apperr"
	"github.com/congo-pay/walletcore/internal/clock"
	"github.com/congo-pay/walletcore/internal/currency"
	"github.com/congo-pay/walletcore/internal/ledger"
	"github.com/congo-pay/walletcore/internal/logging"
	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/ratelock"
	"github.com/congo-pay/walletcore/internal/reservation"
	"github.com/congo-pay/walletcore/internal/store/memory"
	"github.com/congo-pay/walletcore/internal/wallet"
	"github.com/congo-pay/walletcore/internal/walletlock"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type stack struct {
	store     *memory.Store
	clock     *clock.Fake
	wallets   *wallet.Service
	rateLocks *ratelock.Service
	manager   *reservation.Manager
	reaper    *Reaper
}

func newStack(t *testing.T) *stack {
	t.Helper()
	st := memory.New()
	clk := clock.NewFake(t0)
	logger := logging.Discard()
	registry := currency.Default()
	led := ledger.New(st, clk)
	guard := walletlock.Guard{Store: st, Locker: walletlock.NewLocal()}
	locks := ratelock.NewService(st, registry, clk, ratelock.Config{}, logger)
	manager := reservation.NewManager(st, led, locks, guard, clk, logger)
	return &stack{
		store:     st,
		clock:     clk,
		wallets:   wallet.NewService(st, led, guard, registry, clk, logger),
		rateLocks: locks,
		manager:   manager,
		reaper:    New(locks, st, manager, clk, Config{}, logger),
	}
}

func (s *stack) hold(t *testing.T, walletID string, amount int64, ttl time.Duration) models.Reservation {
	t.Helper()
	ctx := context.Background()
	l, err := s.rateLocks.Create(ctx, ratelock.CreateInput{Base: "XOF", Rate: decimal.NewFromInt(1), TTL: ttl})
	require.NoError(t, err)
	r, err := s.manager.Place(ctx, walletID, l.ID, amount)
	require.NoError(t, err)
	return r
}

func TestSweepReleasesExpiredHolds(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	w, err := s.wallets.Create(ctx, wallet.CreateInput{OwnerID: "client", Currency: "XOF"})
	require.NoError(t, err)
	_, err = s.wallets.Deposit(ctx, w.ID, 1000, "")
	require.NoError(t, err)

	expiring := s.hold(t, w.ID, 400, 10*time.Minute)
	live := s.hold(t, w.ID, 100, time.Hour)

	bal, _ := s.wallets.Balance(ctx, w.ID)
	require.Equal(t, int64(500), bal.AvailableBalance)

	s.clock.Advance(11 * time.Minute)
	res, err := s.reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{expiring.RateLockID}, res.ExpiredLocks)
	assert.Equal(t, 1, res.Released)

	got, _ := s.manager.Get(ctx, expiring.ID)
	assert.Equal(t, models.ReservationExpired, got.Status)
	got, _ = s.manager.Get(ctx, live.ID)
	assert.Equal(t, models.ReservationPending, got.Status)

	bal, _ = s.wallets.Balance(ctx, w.ID)
	assert.Equal(t, int64(1000), bal.Balance)
	assert.Equal(t, int64(900), bal.AvailableBalance)

	// a second sweep finds nothing new
	again, err := s.reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.ExpiredLocks)
	assert.Zero(t, again.Released)

	// capture after the reaper ran sees the hold already expired
	_, err = s.manager.Capture(ctx, expiring.ID, 350, 50)
	assert.True(t, apperr.Is(err, apperr.KindReservationNotPending), "got %v", err)
}

func TestSweepRecoversHoldsOfAlreadySweptLocks(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	w, _ := s.wallets.Create(ctx, wallet.CreateInput{OwnerID: "client", Currency: "XOF"})
	_, _ = s.wallets.Deposit(ctx, w.ID, 1000, "")
	r := s.hold(t, w.ID, 400, time.Minute)

	// an earlier cycle marked the lock but died before releasing
	s.clock.Advance(2 * time.Minute)
	_, err := s.rateLocks.SweepExpired(ctx, s.clock.Now())
	require.NoError(t, err)

	res, err := s.reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.ExpiredLocks)
	assert.Equal(t, 1, res.Released)

	got, _ := s.manager.Get(ctx, r.ID)
	assert.Equal(t, models.ReservationExpired, got.Status)
}

type flakySweeper struct {
	failures int32
	calls    int32
}

func (f *flakySweeper) SweepExpired(context.Context, time.Time) ([]string, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		return nil, apperr.E(apperr.KindStoreUnavailable, "test", errors.New("connection refused"))
	}
	return nil, nil
}

type noPending struct{}

func (noPending) ListPendingExpired(context.Context, time.Time) ([]models.Reservation, error) {
	return nil, nil
}

type recordingReleaser struct {
	mu     sync.Mutex
	ids    []string
	onCall func()
}

func (r *recordingReleaser) Release(_ context.Context, id string, reason reservation.Reason) error {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	r.mu.Unlock()
	if r.onCall != nil {
		r.onCall()
	}
	if reason != reservation.ReasonExpired {
		return errors.New("unexpected reason")
	}
	return nil
}

func TestRunRetriesAfterBackoff(t *testing.T) {
	sweeper := &flakySweeper{failures: 2}
	r := New(sweeper, noPending{}, &recordingReleaser{}, clock.NewFake(t0),
		Config{Interval: time.Hour, RetryBackoff: 5 * time.Millisecond}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&sweeper.calls) >= 3
	}, time.Second, time.Millisecond)

	// the third sweep succeeded, so the next one is an hour away
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&sweeper.calls))
	status := r.Status()
	assert.Empty(t, status.LastError)
	assert.Equal(t, t0, status.LastSweepAt)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}
}

type fixedPending []models.Reservation

func (p fixedPending) ListPendingExpired(context.Context, time.Time) ([]models.Reservation, error) {
	return p, nil
}

func TestSweepStopsBetweenReleasesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	releaser := &recordingReleaser{onCall: cancel}
	pending := fixedPending{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}}
	r := New(&flakySweeper{}, pending, releaser, clock.NewFake(t0), Config{}, logging.Discard())

	res, err := r.Sweep(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Released)
	assert.Equal(t, []string{"r1"}, releaser.ids)
}

type erroringReleaser struct{}

func (erroringReleaser) Release(_ context.Context, id string, _ reservation.Reason) error {
	switch id {
	case "done":
		return apperr.Errorf(apperr.KindReservationNotPending, "test", "already captured")
	case "broken":
		return apperr.E(apperr.KindStoreUnavailable, "test", errors.New("timeout"))
	}
	return nil
}

func TestSweepContinuesPastFailures(t *testing.T) {
	pending := fixedPending{{ID: "ok-1"}, {ID: "done"}, {ID: "broken"}, {ID: "ok-2"}}
	r := New(&flakySweeper{}, pending, erroringReleaser{}, clock.NewFake(t0), Config{}, logging.Discard())

	res, err := r.Sweep(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsRetryable(err))
	assert.Equal(t, 2, res.Released)
	assert.Equal(t, 1, res.Skipped)
}
