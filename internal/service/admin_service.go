package service

import (
	"context"

	"nodefoundry-ledger/config"
	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// AdminServiceImpl implements ports.AdminService. The admin is a single
// configured account address; every mutation here is gated on it.
type AdminServiceImpl struct {
	accountRepo ports.AccountRepository
	assetRepo   ports.AssetRepository
	pricingRepo ports.PricingRepository
	platform    config.PlatformConfig
	log         zerolog.Logger
}

// NewAdminService creates a new AdminServiceImpl.
func NewAdminService(
	accountRepo ports.AccountRepository,
	assetRepo ports.AssetRepository,
	pricingRepo ports.PricingRepository,
	platform config.PlatformConfig,
	log zerolog.Logger,
) *AdminServiceImpl {
	return &AdminServiceImpl{
		accountRepo: accountRepo,
		assetRepo:   assetRepo,
		pricingRepo: pricingRepo,
		platform:    platform,
		log:         log,
	}
}

// RequireAdmin fails with Unauthorized unless caller is the configured admin.
func (s *AdminServiceImpl) RequireAdmin(caller string) error {
	if s.platform.AdminAddress == "" || caller != s.platform.AdminAddress {
		return apperror.ErrUnauthorized()
	}
	return nil
}

// WhitelistToken enables an asset for ledger operations.
func (s *AdminServiceImpl) WhitelistToken(ctx context.Context, caller, asset string) error {
	if err := s.RequireAdmin(caller); err != nil {
		return err
	}
	if asset == "" {
		return apperror.Validation("asset must not be empty")
	}
	if err := s.assetRepo.SetWhitelisted(ctx, asset, true); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	s.log.Info().Str("asset", asset).Msg("asset whitelisted")
	return nil
}

// RemoveTokenWhitelist disables an asset. Existing balances stay on the books;
// only new ledger movements are refused.
func (s *AdminServiceImpl) RemoveTokenWhitelist(ctx context.Context, caller, asset string) error {
	if err := s.RequireAdmin(caller); err != nil {
		return err
	}
	if err := s.assetRepo.SetWhitelisted(ctx, asset, false); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	s.log.Info().Str("asset", asset).Msg("asset removed from whitelist")
	return nil
}

// SetInfraPricing configures the price card for an infra listing.
func (s *AdminServiceImpl) SetInfraPricing(ctx context.Context, caller string, pricing *domain.InfraPricing) error {
	if err := s.RequireAdmin(caller); err != nil {
		return err
	}
	if !pricing.Model.Valid() {
		return apperror.Validation("unknown pricing model")
	}
	if pricing.Rate <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if err := s.pricingRepo.SetInfraPricing(ctx, pricing); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	s.log.Info().
		Str("infra_id", pricing.InfraID).
		Str("model", string(pricing.Model)).
		Int64("rate", pricing.Rate).
		Msg("infra pricing set")
	return nil
}

// SetTierPrice configures the subscription price for a (tier, asset) pair.
func (s *AdminServiceImpl) SetTierPrice(ctx context.Context, caller string, tier domain.SubscriptionTier, asset string, price int64) error {
	if err := s.RequireAdmin(caller); err != nil {
		return err
	}
	if !tier.Valid() || tier == domain.TierBasic {
		return apperror.ErrInvalidTier()
	}
	if price <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if err := s.pricingRepo.SetTierPrice(ctx, tier, asset, price); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	s.log.Info().
		Str("tier", tier.String()).
		Str("asset", asset).
		Int64("price", price).
		Msg("tier price set")
	return nil
}

// VerifyAccount marks an account as identity-verified.
func (s *AdminServiceImpl) VerifyAccount(ctx context.Context, caller, address string) error {
	if err := s.RequireAdmin(caller); err != nil {
		return err
	}
	account, err := s.accountRepo.GetByAddress(ctx, address)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if account == nil {
		return apperror.ErrNotFound("Account")
	}
	if err := s.accountRepo.SetVerified(ctx, address, true); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	s.log.Info().Str("address", address).Msg("account verified")
	return nil
}

// DeactivateAccount soft-deactivates an account. The row and its history are
// kept; the account just stops being able to transact.
func (s *AdminServiceImpl) DeactivateAccount(ctx context.Context, caller, address string) error {
	if err := s.RequireAdmin(caller); err != nil {
		return err
	}
	account, err := s.accountRepo.GetByAddress(ctx, address)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if account == nil {
		return apperror.ErrNotFound("Account")
	}
	if err := s.accountRepo.SetActive(ctx, address, false); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	s.log.Info().Str("address", address).Msg("account deactivated")
	return nil
}
