package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletcore/internal/config"
	"github.com/congo-pay/walletcore/internal/currency"
	"github.com/congo-pay/walletcore/internal/custody"
	"github.com/congo-pay/walletcore/internal/infra"
	"github.com/congo-pay/walletcore/internal/logging"
	"github.com/congo-pay/walletcore/internal/ratelock"
	"github.com/congo-pay/walletcore/internal/reaper"
)

// session is an opened wallet core plus what commands need around it.
type session struct {
	core     *custody.Core
	registry *currency.Registry
	out      io.Writer
	close    func()
}

// openSession is replaced in tests.
var openSession = func(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// stdout carries command output, so logs go to stderr.
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel, logging.FormatText)

	backends, err := infra.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := requirePersistent(backends); err != nil {
		backends.Close(logger)
		return nil, err
	}
	registry := currency.Default()
	core := custody.New(custody.Options{
		Store:           backends.Store,
		Locker:          backends.Locker,
		Registry:        registry,
		Logger:          logger,
		ConflictRetries: cfg.ConflictRetries,
		RateLocks:       ratelock.Config{DefaultTTL: cfg.RateLockDefaultTTL, MaxTTL: cfg.RateLockMaxTTL},
		Reaper:          reaper.Config{Interval: cfg.ReaperInterval, RetryBackoff: cfg.ReaperRetryBackoff},
	})
	return &session{
		core:     core,
		registry: registry,
		out:      os.Stdout,
		close:    func() { backends.Close(logger) },
	}, nil
}

// errNoDatabase is returned when walletctl would run on the in-memory store,
// where nothing survives the invocation.
var errNoDatabase = errors.New("DATABASE_URL is not set: walletctl needs a persistent store")

func requirePersistent(b *infra.Backends) error {
	if b.DB == nil {
		return errNoDatabase
	}
	return nil
}

// toMinor parses a major-unit amount such as "12.50" for the given currency.
func (s *session) toMinor(code, amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return s.registry.ToMinor(code, d)
}

func (s *session) format(code string, minor int64) string {
	return s.registry.Format(code, minor)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
