package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/store"
)

const entryColumns = `id, wallet_id, sequence, type, amount, currency, completion_type, reservation_id, reference, created_at`

func scanEntry(row pgx.Row) (models.LedgerEntry, error) {
	var (
		e          models.LedgerEntry
		typ        string
		completion string
	)
	err := row.Scan(&e.ID, &e.WalletID, &e.Sequence, &typ, &e.Amount, &e.Currency, &completion, &e.ReservationID, &e.Reference, &e.CreatedAt)
	e.Type = models.TransactionType(typ)
	e.CompletionType = models.CompletionType(completion)
	return e, err
}

// AppendEntry numbers the entry after the wallet's current highest sequence.
// Callers hold the wallet row lock, so the (wallet_id, sequence) key never races.
func (q *queries) AppendEntry(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	const stmt = `
        INSERT INTO ledger_entries (` + entryColumns + `)
        SELECT $1::text, $2::text, COALESCE(MAX(sequence), 0) + 1, $3::text, $4::bigint, $5::text,
            $6::text, $7::text, $8::text, $9::timestamptz
        FROM ledger_entries WHERE wallet_id = $2
        RETURNING sequence`
	err := q.db.QueryRow(ctx, stmt,
		e.ID, e.WalletID, string(e.Type), e.Amount, e.Currency,
		string(e.CompletionType), e.ReservationID, e.Reference, e.CreatedAt,
	).Scan(&e.Sequence)
	if err != nil {
		return models.LedgerEntry{}, mapErr(err)
	}
	return e, nil
}

func (q *queries) SumEntries(ctx context.Context, walletID string) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE wallet_id = $1`, walletID).Scan(&sum)
	if err != nil {
		return 0, mapErr(err)
	}
	return sum, nil
}

// StreamEntries reads rows one at a time from the cursor rather than loading the range.
func (q *queries) StreamEntries(ctx context.Context, eq store.EntryQuery, yield func(models.LedgerEntry) bool) error {
	var (
		sb   strings.Builder
		args = []any{eq.WalletID}
	)
	sb.WriteString(`SELECT ` + entryColumns + ` FROM ledger_entries WHERE wallet_id = $1`)
	if !eq.From.IsZero() {
		args = append(args, eq.From)
		sb.WriteString(` AND created_at >= $2`)
	}
	if !eq.To.IsZero() {
		args = append(args, eq.To)
		if len(args) == 2 {
			sb.WriteString(` AND created_at < $2`)
		} else {
			sb.WriteString(` AND created_at < $3`)
		}
	}
	sb.WriteString(` ORDER BY created_at, sequence`)

	rows, err := q.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return err
		}
		if !yield(e) {
			return nil
		}
	}
	return rows.Err()
}
