package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateLock guarantees Rate for BaseCurrency (quoted in QuoteCurrency when set)
// until ExpiresAt. ExpiredAt is set once the reaper has swept it.
type RateLock struct {
	ID            string
	BaseCurrency  string
	QuoteCurrency string
	Rate          decimal.Decimal
	CreatedAt     time.Time
	ExpiresAt     time.Time
	ExpiredAt     *time.Time
}

// IsExpired reports whether the lock is no longer usable at now.
func (l RateLock) IsExpired(now time.Time) bool {
	return l.ExpiredAt != nil || now.After(l.ExpiresAt)
}

// Pair renders the currency reference, e.g. "USD/XOF" or "XOF".
func (l RateLock) Pair() string {
	if l.QuoteCurrency == "" {
		return l.BaseCurrency
	}
	return l.BaseCurrency + "/" + l.QuoteCurrency
}
