package postgres

import (
	"context"
	"fmt"

	"nodefoundry-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ReferralRepo implements ports.ReferralRepository.
// Records are keyed by (referrer, referee, asset); pending_commission carries
// a CHECK (pending_commission >= 0) constraint.
type ReferralRepo struct {
	pool Pool
}

// NewReferralRepo creates a new ReferralRepo.
func NewReferralRepo(pool Pool) *ReferralRepo {
	return &ReferralRepo{pool: pool}
}

// Accrue adds amount to the pending commission, creating the record if needed.
func (r *ReferralRepo) Accrue(ctx context.Context, tx pgx.Tx, referrer, referee, asset string, amount int64) error {
	query := `INSERT INTO referral_records (referrer_address, referee_address, asset, pending_commission, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (referrer_address, referee_address, asset)
		DO UPDATE SET pending_commission = referral_records.pending_commission + $4, updated_at = NOW()`

	if _, err := tx.Exec(ctx, query, referrer, referee, asset, amount); err != nil {
		return fmt.Errorf("accrue referral commission: %w", err)
	}
	return nil
}

// ListPendingForUpdate locks and returns all records with pending commission
// for the referrer. This MUST be called within a transaction.
func (r *ReferralRepo) ListPendingForUpdate(ctx context.Context, tx pgx.Tx, referrer string) ([]domain.ReferralRecord, error) {
	query := `SELECT referrer_address, referee_address, asset, pending_commission, updated_at
		FROM referral_records
		WHERE referrer_address = $1 AND pending_commission > 0
		ORDER BY asset, referee_address
		FOR UPDATE`

	rows, err := tx.Query(ctx, query, referrer)
	if err != nil {
		return nil, fmt.Errorf("list pending referrals: %w", err)
	}
	defer rows.Close()

	return scanReferralRecords(rows)
}

// ZeroPending clears all pending commission for the referrer.
func (r *ReferralRepo) ZeroPending(ctx context.Context, tx pgx.Tx, referrer string) error {
	query := `UPDATE referral_records SET pending_commission = 0, updated_at = NOW()
		WHERE referrer_address = $1 AND pending_commission > 0`

	if _, err := tx.Exec(ctx, query, referrer); err != nil {
		return fmt.Errorf("zero pending referrals: %w", err)
	}
	return nil
}

// ListByReferrer returns every referral record for the referrer.
func (r *ReferralRepo) ListByReferrer(ctx context.Context, referrer string) ([]domain.ReferralRecord, error) {
	query := `SELECT referrer_address, referee_address, asset, pending_commission, updated_at
		FROM referral_records WHERE referrer_address = $1 ORDER BY asset, referee_address`

	rows, err := r.pool.Query(ctx, query, referrer)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	defer rows.Close()

	return scanReferralRecords(rows)
}

func scanReferralRecords(rows pgx.Rows) ([]domain.ReferralRecord, error) {
	var result []domain.ReferralRecord
	for rows.Next() {
		var rec domain.ReferralRecord
		if err := rows.Scan(&rec.ReferrerAddress, &rec.RefereeAddress, &rec.Asset, &rec.PendingCommission, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan referral record: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
