package main

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletcore/internal/clock"
	"github.com/congo-pay/walletcore/internal/currency"
	"github.com/congo-pay/walletcore/internal/custody"
	"github.com/congo-pay/walletcore/internal/infra"
	"github.com/congo-pay/walletcore/internal/logging"
	"github.com/congo-pay/walletcore/internal/ratelock"
	"github.com/congo-pay/walletcore/internal/store/memory"
)

type harness struct {
	core  *custody.Core
	clock *clock.Fake
	out   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock: clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		out:   &bytes.Buffer{},
	}
	h.core = custody.New(custody.Options{Store: memory.New(), Clock: h.clock, Logger: logging.Discard()})

	prev := openSession
	openSession = func(context.Context) (*session, error) {
		return &session{core: h.core, registry: currency.Default(), out: h.out, close: func() {}}, nil
	}
	t.Cleanup(func() { openSession = prev })
	return h
}

// run executes one command line and returns its status and stdout.
func (h *harness) run(t *testing.T, args ...string) (subcommands.ExitStatus, string) {
	t.Helper()
	h.out.Reset()
	fs := flag.NewFlagSet("walletctl", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "walletctl")
	register(commander)
	require.NoError(t, fs.Parse(args))
	status := commander.Execute(context.Background())
	return status, h.out.String()
}

func TestCreateDepositBalance(t *testing.T) {
	h := newHarness(t)

	status, out := h.run(t, "create", "-owner", "client-1", "-currency", "usd")
	require.Equal(t, subcommands.ExitSuccess, status)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	status, _ = h.run(t, "deposit", "-wallet", id, "-amount", "12.50", "-reference", "topup")
	require.Equal(t, subcommands.ExitSuccess, status)
	status, _ = h.run(t, "withdraw", "-wallet", id, "-amount", "2.25")
	require.Equal(t, subcommands.ExitSuccess, status)

	b, err := h.core.GetWalletBalance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(1025), b.Balance)

	status, out = h.run(t, "balance", "-wallet", id)
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "available:")
	assert.Contains(t, out, "10.25")
}

func TestDepositRejectsExcessPrecision(t *testing.T) {
	h := newHarness(t)
	_, out := h.run(t, "create", "-owner", "client-1", "-currency", "XOF")
	id := strings.TrimSpace(out)

	status, _ := h.run(t, "deposit", "-wallet", id, "-amount", "10.5")
	assert.Equal(t, subcommands.ExitUsageError, status)
}

func TestMissingFlagsAreUsageErrors(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{
		{"create"},
		{"deposit", "-wallet", "w"},
		{"balance"},
		{"history"},
		{"history", "-wallet", "w", "-from", "yesterday"},
	} {
		status, _ := h.run(t, args...)
		assert.Equal(t, subcommands.ExitUsageError, status, "args %v", args)
	}
}

func TestHistoryDaily(t *testing.T) {
	h := newHarness(t)
	_, out := h.run(t, "create", "-owner", "client-1", "-currency", "XOF")
	id := strings.TrimSpace(out)
	h.run(t, "deposit", "-wallet", id, "-amount", "1000")
	h.clock.Advance(24 * time.Hour)
	h.run(t, "deposit", "-wallet", id, "-amount", "500")

	status, out := h.run(t, "history", "-wallet", id)
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "opening balance")
	assert.Equal(t, 2, strings.Count(out, "deposit"))

	status, out = h.run(t, "history", "-wallet", id, "-daily")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "2024-03-01")
	assert.Contains(t, out, "2024-03-02")
}

func TestRequiresPersistentStore(t *testing.T) {
	err := requirePersistent(&infra.Backends{Store: memory.New()})
	require.ErrorIs(t, err, errNoDatabase)
}

func TestSweepAndReconcile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, out := h.run(t, "create", "-owner", "client-1", "-currency", "XOF")
	id := strings.TrimSpace(out)
	h.run(t, "deposit", "-wallet", id, "-amount", "1000")

	lock, err := h.core.LockRate(ctx, ratelock.CreateInput{Base: "XOF", Rate: decimal.NewFromInt(1), TTL: time.Minute})
	require.NoError(t, err)
	_, err = h.core.PlaceReservation(ctx, id, lock.ID, 400)
	require.NoError(t, err)

	h.clock.Advance(2 * time.Minute)
	status, out := h.run(t, "sweep")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "released: 1")

	status, out = h.run(t, "reconcile")
	assert.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t, "no drift\n", out)
}
