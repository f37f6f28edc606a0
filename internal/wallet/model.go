package wallet

import (
	"time"

	"github.com/congo-pay/walletcore/internal/models"
)

// Balance is a point-in-time view of a wallet's funds.
type Balance struct {
	WalletID         string
	Currency         string
	Balance          int64
	AvailableBalance int64
	AsOf             time.Time
}

// DailyBalance is the state of a wallet at the end of one UTC day.
type DailyBalance struct {
	Date             time.Time
	Balance          int64
	AvailableBalance int64
	TransactionCount int
}

// History is the ledger statement for a range plus its daily rollup.
type History struct {
	WalletID       string
	Currency       string
	From           time.Time
	To             time.Time
	OpeningBalance int64
	Entries        []models.LedgerEntry
	Days           []DailyBalance
}

// Drift compares a wallet's cached balances with what the ledger and the
// pending reservations imply.
type Drift struct {
	WalletID     string
	CachedTotal  int64
	LedgerTotal  int64
	CachedHeld   int64
	PendingHolds int64
}

// OK reports whether the cache agrees with the ledger.
func (d Drift) OK() bool {
	return d.CachedTotal == d.LedgerTotal && d.CachedHeld == d.PendingHolds
}
