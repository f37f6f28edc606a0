package models

import "time"

// Wallet is a client's stored-value account. Balance and AvailableBalance are
// minor units of Currency and are a cache of what the ledger and the open
// reservations imply.
type Wallet struct {
	ID               string
	OwnerID          string
	Currency         string
	Balance          int64
	AvailableBalance int64
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Held returns the amount currently locked by pending reservations.
func (w Wallet) Held() int64 {
	return w.Balance - w.AvailableBalance
}

// Consistent reports whether 0 <= AvailableBalance <= Balance.
func (w Wallet) Consistent() bool {
	return w.AvailableBalance >= 0 && w.AvailableBalance <= w.Balance
}
