package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletcore/internal/models"
)

func (q *queries) CreateRateLock(ctx context.Context, l models.RateLock) error {
	_, err := q.db.Exec(ctx, `INSERT INTO rate_locks
        (id, base_currency, quote_currency, rate, created_at, expires_at, expired_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`,
		l.ID, l.BaseCurrency, l.QuoteCurrency, l.Rate.String(), l.CreatedAt, l.ExpiresAt, l.ExpiredAt)
	return mapErr(err)
}

func (q *queries) GetRateLock(ctx context.Context, id string) (models.RateLock, error) {
	var (
		l    models.RateLock
		rate string
	)
	err := q.db.QueryRow(ctx, `SELECT id, base_currency, quote_currency, rate::text, created_at, expires_at, expired_at
        FROM rate_locks WHERE id = $1`+q.shareClause(), id).
		Scan(&l.ID, &l.BaseCurrency, &l.QuoteCurrency, &rate, &l.CreatedAt, &l.ExpiresAt, &l.ExpiredAt)
	if err != nil {
		return models.RateLock{}, mapErr(err)
	}
	l.Rate, err = decimal.NewFromString(rate)
	if err != nil {
		return models.RateLock{}, fmt.Errorf("parse rate of %s: %w", id, err)
	}
	return l, nil
}

func (q *queries) MarkRateLocksExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := q.db.Query(ctx, `UPDATE rate_locks SET expired_at = $1
        WHERE expired_at IS NULL AND expires_at < $1
        RETURNING id`, now)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	sort.Strings(ids)
	return ids, nil
}
