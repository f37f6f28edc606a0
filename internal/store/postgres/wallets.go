package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/congo-pay/walletcore/internal/models"
	"github.com/congo-pay/walletcore/internal/store"
)

const walletColumns = `id, owner_id, currency, balance, available_balance, version, created_at, updated_at`

func scanWallet(row pgx.Row) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.OwnerID, &w.Currency, &w.Balance, &w.AvailableBalance, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func (q *queries) CreateWallet(ctx context.Context, w models.Wallet) error {
	_, err := q.db.Exec(ctx, `INSERT INTO wallets (`+walletColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		w.ID, w.OwnerID, w.Currency, w.Balance, w.AvailableBalance, w.Version, w.CreatedAt, w.UpdatedAt)
	return mapErr(err)
}

func (q *queries) GetWallet(ctx context.Context, id string) (models.Wallet, error) {
	row := q.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`+q.lockClause(), id)
	w, err := scanWallet(row)
	if err != nil {
		return models.Wallet{}, mapErr(err)
	}
	return w, nil
}

func (q *queries) UpdateWallet(ctx context.Context, w models.Wallet) (models.Wallet, error) {
	const stmt = `
        UPDATE wallets
        SET balance = $2, available_balance = $3, updated_at = $4, version = version + 1
        WHERE id = $1 AND version = $5
        RETURNING version`
	var version int64
	err := q.db.QueryRow(ctx, stmt, w.ID, w.Balance, w.AvailableBalance, w.UpdatedAt, w.Version).Scan(&version)
	if err == nil {
		w.Version = version
		return w, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Wallet{}, mapErr(err)
	}

	var exists bool
	if err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1)`, w.ID).Scan(&exists); err != nil {
		return models.Wallet{}, mapErr(err)
	}
	if !exists {
		return models.Wallet{}, store.ErrNotFound
	}
	return models.Wallet{}, store.ErrVersionConflict
}

func (q *queries) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	rows, err := q.db.Query(ctx, `SELECT `+walletColumns+` FROM wallets ORDER BY id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
