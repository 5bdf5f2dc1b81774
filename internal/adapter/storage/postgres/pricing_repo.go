package postgres

import (
	"context"
	"errors"
	"fmt"

	"nodefoundry-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PricingRepo implements ports.PricingRepository.
type PricingRepo struct {
	pool Pool
}

// NewPricingRepo creates a new PricingRepo.
func NewPricingRepo(pool Pool) *PricingRepo {
	return &PricingRepo{pool: pool}
}

// SetInfraPricing upserts the price card for one (infra, model) pair.
func (r *PricingRepo) SetInfraPricing(ctx context.Context, p *domain.InfraPricing) error {
	query := `INSERT INTO infra_pricing (infra_id, model, rate, asset, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (infra_id, model) DO UPDATE SET rate = $3, asset = $4, updated_at = NOW()`

	if _, err := r.pool.Exec(ctx, query, p.InfraID, p.Model, p.Rate, p.Asset); err != nil {
		return fmt.Errorf("set infra pricing: %w", err)
	}
	return nil
}

// GetInfraPricing fetches the price card for (infra, model), nil if unset.
func (r *PricingRepo) GetInfraPricing(ctx context.Context, infraID string, model domain.PricingModel) (*domain.InfraPricing, error) {
	query := `SELECT infra_id, model, rate, asset, updated_at FROM infra_pricing
		WHERE infra_id = $1 AND model = $2`

	p := &domain.InfraPricing{}
	err := r.pool.QueryRow(ctx, query, infraID, model).Scan(&p.InfraID, &p.Model, &p.Rate, &p.Asset, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get infra pricing: %w", err)
	}
	return p, nil
}

// SetTierPrice upserts the subscription price for one (tier, asset) pair.
func (r *PricingRepo) SetTierPrice(ctx context.Context, tier domain.SubscriptionTier, asset string, price int64) error {
	query := `INSERT INTO tier_prices (tier, asset, price, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tier, asset) DO UPDATE SET price = $3, updated_at = NOW()`

	if _, err := r.pool.Exec(ctx, query, tier, asset, price); err != nil {
		return fmt.Errorf("set tier price: %w", err)
	}
	return nil
}

// GetTierPrice returns found=false when no price is configured.
func (r *PricingRepo) GetTierPrice(ctx context.Context, tier domain.SubscriptionTier, asset string) (int64, bool, error) {
	query := `SELECT price FROM tier_prices WHERE tier = $1 AND asset = $2`

	var price int64
	err := r.pool.QueryRow(ctx, query, tier, asset).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get tier price: %w", err)
	}
	return price, true, nil
}
