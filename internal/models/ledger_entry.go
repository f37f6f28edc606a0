package models

import "time"

// TransactionType classifies a ledger movement.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionPurchase   TransactionType = "purchase"
	TransactionServiceFee TransactionType = "service_fee"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDeposit, TransactionWithdrawal, TransactionPurchase, TransactionServiceFee:
		return true
	}
	return false
}

// CompletionType records how the movement or reservation came to an end.
type CompletionType string

const (
	CompletionNone      CompletionType = ""
	CompletionPurchased CompletionType = "purchased"
	CompletionCancelled CompletionType = "cancelled"
	CompletionExpired   CompletionType = "expired"
)

// LedgerEntry is an immutable monetary movement. Amount is signed: credits are
// positive, debits negative. Sequence is assigned by the store and increases
// monotonically per wallet.
type LedgerEntry struct {
	ID             string
	WalletID       string
	Sequence       int64
	Type           TransactionType
	Amount         int64
	Currency       string
	CompletionType CompletionType
	ReservationID  string
	Reference      string
	CreatedAt      time.Time
}
