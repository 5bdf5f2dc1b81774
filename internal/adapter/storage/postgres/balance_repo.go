package postgres

import (
	"context"
	"errors"
	"fmt"

	"nodefoundry-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// BalanceRepo implements ports.BalanceRepository.
// The balances table carries a CHECK (amount >= 0) constraint, so the
// database itself rejects any write that would take a balance negative.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// Get returns the balance for (account, asset), zero when no row exists.
func (r *BalanceRepo) Get(ctx context.Context, address, asset string) (int64, error) {
	query := `SELECT amount FROM balances WHERE account_address = $1 AND asset = $2`

	var amount int64
	err := r.pool.QueryRow(ctx, query, address, asset).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return amount, nil
}

// GetForUpdate locks and returns the balance row. found is false when the
// account has never held this asset.
// This MUST be called within a transaction.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, address, asset string) (int64, bool, error) {
	query := `SELECT amount FROM balances WHERE account_address = $1 AND asset = $2 FOR UPDATE`

	var amount int64
	err := tx.QueryRow(ctx, query, address, asset).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get balance for update: %w", err)
	}
	return amount, true, nil
}

// Upsert sets the absolute balance amount within a transaction.
func (r *BalanceRepo) Upsert(ctx context.Context, tx pgx.Tx, address, asset string, amount int64) error {
	query := `INSERT INTO balances (account_address, asset, amount, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (account_address, asset) DO UPDATE SET amount = $3, updated_at = NOW()`

	if _, err := tx.Exec(ctx, query, address, asset, amount); err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

// ListByAccount returns every asset balance held by the account.
func (r *BalanceRepo) ListByAccount(ctx context.Context, address string) ([]domain.AssetBalance, error) {
	query := `SELECT asset, amount FROM balances WHERE account_address = $1 ORDER BY asset`

	rows, err := r.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var result []domain.AssetBalance
	for rows.Next() {
		var b domain.AssetBalance
		if err := rows.Scan(&b.Asset, &b.Amount); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}
