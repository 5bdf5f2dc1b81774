package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
// Rows are append-only; there is deliberately no update method.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a ledger transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, account_address, kind, amount, asset, related_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.AccountAddress, t.Kind, t.Amount, t.Asset, t.RelatedID, t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by its UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, account_address, kind, amount, asset, related_id, status, created_at
		FROM transactions WHERE id = $1`

	t := &domain.Transaction{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.AccountAddress, &t.Kind, &t.Amount, &t.Asset, &t.RelatedID, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// List returns a filtered, paginated page of an account's transactions plus
// the unpaginated total.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	conditions := []string{"account_address = $1"}
	args := []any{params.AccountAddress}

	if params.Kind != nil {
		args = append(args, *params.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if params.Asset != nil {
		args = append(args, *params.Asset)
		conditions = append(conditions, fmt.Sprintf("asset = $%d", len(args)))
	}
	if params.From != nil {
		args = append(args, *params.From)
		conditions = append(conditions, fmt.Sprintf("EXTRACT(EPOCH FROM created_at) >= $%d", len(args)))
	}
	if params.To != nil {
		args = append(args, *params.To)
		conditions = append(conditions, fmt.Sprintf("EXTRACT(EPOCH FROM created_at) <= $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	args = append(args, pageSize, (page-1)*pageSize)
	listQuery := fmt.Sprintf(
		`SELECT id, account_address, kind, amount, asset, related_id, status, created_at
		FROM transactions WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.AccountAddress, &t.Kind, &t.Amount, &t.Asset, &t.RelatedID, &t.Status, &t.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, t)
	}
	return result, total, rows.Err()
}

// PlatformTotals aggregates completed transactions for platform stats.
func (r *TransactionRepo) PlatformTotals(ctx context.Context, treasuryAddress string) (*ports.PlatformTotals, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE kind = $1), 0),
		COALESCE(SUM(amount) FILTER (WHERE kind = $2), 0),
		COALESCE(SUM(amount) FILTER (WHERE kind = $3 AND account_address = $4), 0)
		FROM transactions WHERE status = $5`

	totals := &ports.PlatformTotals{}
	err := r.pool.QueryRow(ctx, query,
		domain.TransactionKindDeposit,
		domain.TransactionKindWithdrawal,
		domain.TransactionKindEscrowRelease,
		treasuryAddress,
		domain.TransactionStatusCompleted,
	).Scan(&totals.TotalDeposits, &totals.TotalWithdrawals, &totals.FeesCollected)
	if err != nil {
		return nil, fmt.Errorf("platform totals: %w", err)
	}
	return totals, nil
}
