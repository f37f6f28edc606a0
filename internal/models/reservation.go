package models

import "time"

// ReservationStatus is the lifecycle state of a hold.
type ReservationStatus string

const (
	ReservationPending  ReservationStatus = "pending"
	ReservationCaptured ReservationStatus = "captured"
	ReservationReleased ReservationStatus = "released"
	ReservationExpired  ReservationStatus = "expired"
)

// Terminal reports whether no further transitions are allowed.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationCaptured || s == ReservationReleased || s == ReservationExpired
}

// Reservation holds part of a wallet's available balance against a purchase
// priced with RateLockID.
type Reservation struct {
	ID                 string
	WalletID           string
	RateLockID         string
	Amount             int64
	PurchaseLedgerID   string
	ServiceFeeLedgerID string
	Status             ReservationStatus
	CompletionType     CompletionType
	CreatedAt          time.Time
	ResolvedAt         *time.Time
}

// OpenAt reports whether the hold was pending at instant t.
func (r Reservation) OpenAt(t time.Time) bool {
	if r.CreatedAt.After(t) {
		return false
	}
	if r.Status == ReservationPending {
		return true
	}
	return r.ResolvedAt != nil && r.ResolvedAt.After(t)
}
