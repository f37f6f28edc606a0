package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/store"
)

const reservationColumns = `r.id, r.wallet_id, r.rate_lock_id, r.amount, r.purchase_ledger_id, r.service_fee_ledger_id,
        r.status, r.completion_type, r.created_at, r.resolved_at`

func scanReservation(row pgx.Row) (models.Reservation, error) {
	var (
		r          models.Reservation
		status     string
		completion string
	)
	err := row.Scan(&r.ID, &r.WalletID, &r.RateLockID, &r.Amount, &r.PurchaseLedgerID, &r.ServiceFeeLedgerID,
		&status, &completion, &r.CreatedAt, &r.ResolvedAt)
	r.Status = models.ReservationStatus(status)
	r.CompletionType = models.CompletionType(completion)
	return r, err
}

func (q *queries) CreateReservation(ctx context.Context, r models.Reservation) error {
	_, err := q.db.Exec(ctx, `INSERT INTO reservations
        (id, wallet_id, rate_lock_id, amount, purchase_ledger_id, service_fee_ledger_id, status, completion_type, created_at, resolved_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.WalletID, r.RateLockID, r.Amount, r.PurchaseLedgerID, r.ServiceFeeLedgerID,
		string(r.Status), string(r.CompletionType), r.CreatedAt, r.ResolvedAt)
	return mapErr(err)
}

func (q *queries) GetReservation(ctx context.Context, id string) (models.Reservation, error) {
	row := q.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = $1`+q.lockClause(), id)
	r, err := scanReservation(row)
	if err != nil {
		return models.Reservation{}, mapErr(err)
	}
	return r, nil
}

func (q *queries) UpdateReservation(ctx context.Context, r models.Reservation) error {
	tag, err := q.db.Exec(ctx, `UPDATE reservations
        SET purchase_ledger_id = $2, service_fee_ledger_id = $3, status = $4, completion_type = $5, resolved_at = $6
        WHERE id = $1`,
		r.ID, r.PurchaseLedgerID, r.ServiceFeeLedgerID, string(r.Status), string(r.CompletionType), r.ResolvedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) ListPendingExpired(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	return q.listReservations(ctx, `SELECT `+reservationColumns+`
        FROM reservations r
        INNER JOIN rate_locks l ON l.id = r.rate_lock_id
        WHERE r.status = 'pending' AND (l.expired_at IS NOT NULL OR l.expires_at < $1)
        ORDER BY r.created_at, r.id`, now)
}

func (q *queries) ListReservations(ctx context.Context, walletID string) ([]models.Reservation, error) {
	return q.listReservations(ctx, `SELECT `+reservationColumns+`
        FROM reservations r WHERE r.wallet_id = $1
        ORDER BY r.created_at, r.id`, walletID)
}

func (q *queries) listReservations(ctx context.Context, query string, args ...any) ([]models.Reservation, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
