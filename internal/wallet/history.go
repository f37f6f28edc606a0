package wallet

import (
	"context"
	"time"

	"github.com/congo-pay/walletcore/internal/apperr"
	"github.com/congo-pay/walletcore/internal/ledger"
	"github.com/congo-pay/walletcore/internal/models"
)

// History returns the ledger entries in [from, to) and one DailyBalance per
// UTC day the range touches. A zero from starts at wallet creation and a zero
// to ends with the current UTC day. Daily rows are derived from the ledger
// and the reservation timeline; nothing is stored.
func (s *Service) History(ctx context.Context, walletID string, from, to time.Time) (History, error) {
	const op = "wallet.History"

	w, err := s.Get(ctx, walletID)
	if err != nil {
		return History{}, err
	}
	if from.IsZero() {
		from = w.CreatedAt
	}
	if to.IsZero() {
		to = startOfDay(s.clock.Now()).AddDate(0, 0, 1)
	}
	h := History{WalletID: w.ID, Currency: w.Currency, From: from.UTC(), To: to.UTC()}
	if !h.To.After(h.From) {
		return h, nil
	}

	for e, err := range s.ledger.EntriesFor(ctx, walletID, ledger.TimeRange{To: h.From}) {
		if err != nil {
			return History{}, err
		}
		h.OpeningBalance += e.Amount
	}
	for e, err := range s.ledger.EntriesFor(ctx, walletID, ledger.TimeRange{From: h.From, To: h.To}) {
		if err != nil {
			return History{}, err
		}
		h.Entries = append(h.Entries, e)
	}

	reservations, err := s.store.ListReservations(ctx, walletID)
	if err != nil {
		return History{}, apperr.Unavailable(op, err)
	}
	h.Days = dailyRollup(h.OpeningBalance, h.Entries, reservations, h.From, h.To)
	return h, nil
}

func dailyRollup(opening int64, entries []models.LedgerEntry, reservations []models.Reservation, from, to time.Time) []DailyBalance {
	var (
		days    []DailyBalance
		balance = opening
		next    int
	)
	for day := startOfDay(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		end := day.AddDate(0, 0, 1)
		count := 0
		for next < len(entries) && entries[next].CreatedAt.Before(end) {
			balance += entries[next].Amount
			count++
			next++
		}

		cut := end
		if to.Before(cut) {
			cut = to
		}
		at := cut.Add(-time.Nanosecond)
		var held int64
		for _, r := range reservations {
			if r.OpenAt(at) {
				held += r.Amount
			}
		}

		days = append(days, DailyBalance{
			Date:             day,
			Balance:          balance,
			AvailableBalance: balance - held,
			TransactionCount: count,
		})
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
