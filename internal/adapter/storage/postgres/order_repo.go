package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nodefoundry-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderColumns = `id, buyer_address, provider_infra_id, provider_address, amount, asset,
		escrowed_amount, state, created_at, resolved_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(
		&o.ID, &o.BuyerAddress, &o.ProviderInfraID, &o.ProviderAddress, &o.Amount, &o.Asset,
		&o.EscrowedAmount, &o.State, &o.CreatedAt, &o.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

// Create inserts an order and fills its generated ID. Creation moves no
// funds, so it runs outside any ledger transaction.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	query := `INSERT INTO orders (buyer_address, provider_infra_id, provider_address, amount, asset, escrowed_amount, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		o.BuyerAddress, o.ProviderInfraID, o.ProviderAddress, o.Amount, o.Asset,
		o.EscrowedAmount, o.State, o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID fetches an order by id (non-locking read).
func (r *OrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// GetByIDForUpdate fetches an order with pessimistic locking.
// This MUST be called within a transaction.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	o, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get order for update: %w", err)
	}
	return o, nil
}

// UpdateState writes a new order state within a transaction.
func (r *OrderRepo) UpdateState(ctx context.Context, tx pgx.Tx, id int64, state domain.OrderState) error {
	query := `UPDATE orders SET state = $1 WHERE id = $2`

	tag, err := tx.Exec(ctx, query, state, id)
	if err != nil {
		return fmt.Errorf("update order state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %d", id)
	}
	return nil
}

// SetFunded records the escrowed amount and moves the order to Funded.
func (r *OrderRepo) SetFunded(ctx context.Context, tx pgx.Tx, id int64, escrowed int64) error {
	query := `UPDATE orders SET escrowed_amount = $1, state = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, escrowed, domain.OrderStateFunded, id)
	if err != nil {
		return fmt.Errorf("set order funded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %d", id)
	}
	return nil
}

// Resolve zeroes the escrowed amount and writes the terminal state.
func (r *OrderRepo) Resolve(ctx context.Context, tx pgx.Tx, id int64, state domain.OrderState, resolvedAt time.Time) error {
	query := `UPDATE orders SET escrowed_amount = 0, state = $1, resolved_at = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, state, resolvedAt, id)
	if err != nil {
		return fmt.Errorf("resolve order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %d", id)
	}
	return nil
}

// SumEscrowed returns the total amount currently held across all orders.
func (r *OrderRepo) SumEscrowed(ctx context.Context) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(escrowed_amount), 0) FROM orders`
	if err := r.pool.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum escrowed: %w", err)
	}
	return total, nil
}

// ListByBuyer returns a buyer's orders, newest first.
func (r *OrderRepo) ListByBuyer(ctx context.Context, address string) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE buyer_address = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.BuyerAddress, &o.ProviderInfraID, &o.ProviderAddress, &o.Amount, &o.Asset,
			&o.EscrowedAmount, &o.State, &o.CreatedAt, &o.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}
