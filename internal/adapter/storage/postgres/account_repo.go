package postgres

import (
	"context"
	"errors"
	"fmt"

	"nodefoundry-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `address, username, email, password_hash, referral_code, referred_by,
		total_spent, loyalty_points, subscription_tier, is_verified, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.Address, &a.Username, &a.Email, &a.PasswordHash, &a.ReferralCode, &a.ReferredBy,
		&a.TotalSpent, &a.LoyaltyPoints, &a.SubscriptionTier, &a.IsVerified, &a.IsActive,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// Create inserts a new account into the database.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		a.Address, a.Username, a.Email, a.PasswordHash, a.ReferralCode, a.ReferredBy,
		a.TotalSpent, a.LoyaltyPoints, a.SubscriptionTier, a.IsVerified, a.IsActive,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByAddress fetches an account by its address (non-locking read).
func (r *AccountRepo) GetByAddress(ctx context.Context, address string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE address = $1`
	a, err := scanAccount(r.pool.QueryRow(ctx, query, address))
	if err != nil {
		return nil, fmt.Errorf("get account by address: %w", err)
	}
	return a, nil
}

// GetByAddressForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByAddressForUpdate(ctx context.Context, tx pgx.Tx, address string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE address = $1 FOR UPDATE`
	a, err := scanAccount(tx.QueryRow(ctx, query, address))
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return a, nil
}

// GetByUsername fetches an account by username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	a, err := scanAccount(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("get account by username: %w", err)
	}
	return a, nil
}

// GetByReferralCode fetches an account by its referral code.
func (r *AccountRepo) GetByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE referral_code = $1`
	a, err := scanAccount(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("get account by referral code: %w", err)
	}
	return a, nil
}

// UpdateTier writes a new subscription tier within a transaction.
func (r *AccountRepo) UpdateTier(ctx context.Context, tx pgx.Tx, address string, tier domain.SubscriptionTier) error {
	query := `UPDATE accounts SET subscription_tier = $1, updated_at = NOW() WHERE address = $2`

	tag, err := tx.Exec(ctx, query, tier, address)
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", address)
	}
	return nil
}

// AddSpend bumps total_spent and loyalty_points after a spend debit.
func (r *AccountRepo) AddSpend(ctx context.Context, tx pgx.Tx, address string, amount, points int64) error {
	query := `UPDATE accounts
		SET total_spent = total_spent + $1, loyalty_points = loyalty_points + $2, updated_at = NOW()
		WHERE address = $3`

	tag, err := tx.Exec(ctx, query, amount, points, address)
	if err != nil {
		return fmt.Errorf("add spend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", address)
	}
	return nil
}

// SetVerified updates the verified flag.
func (r *AccountRepo) SetVerified(ctx context.Context, address string, verified bool) error {
	query := `UPDATE accounts SET is_verified = $1, updated_at = NOW() WHERE address = $2`

	tag, err := r.pool.Exec(ctx, query, verified, address)
	if err != nil {
		return fmt.Errorf("set verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", address)
	}
	return nil
}

// SetActive soft-(de)activates an account. Accounts are never deleted.
func (r *AccountRepo) SetActive(ctx context.Context, address string, active bool) error {
	query := `UPDATE accounts SET is_active = $1, updated_at = NOW() WHERE address = $2`

	tag, err := r.pool.Exec(ctx, query, active, address)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", address)
	}
	return nil
}

// Count returns the total number of accounts.
func (r *AccountRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// CountActiveSubscriptions returns the number of accounts above the basic tier.
func (r *AccountRepo) CountActiveSubscriptions(ctx context.Context) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM accounts WHERE subscription_tier > 0 AND is_active`
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active subscriptions: %w", err)
	}
	return n, nil
}
