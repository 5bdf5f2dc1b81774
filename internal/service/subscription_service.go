package service

import (
	"context"
	"fmt"

	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// SubscriptionServiceImpl implements ports.SubscriptionService.
type SubscriptionServiceImpl struct {
	accountRepo ports.AccountRepository
	pricingRepo ports.PricingRepository
	ledger      ports.LedgerService
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionServiceImpl.
func NewSubscriptionService(
	accountRepo ports.AccountRepository,
	pricingRepo ports.PricingRepository,
	ledger ports.LedgerService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *SubscriptionServiceImpl {
	return &SubscriptionServiceImpl{
		accountRepo: accountRepo,
		pricingRepo: pricingRepo,
		ledger:      ledger,
		transactor:  transactor,
		log:         log,
	}
}

// UpgradeSubscription moves the caller to a new tier. Only an upgrade is
// charged, at the configured tier price; any downgrade is free. The debit and
// the tier write commit as one unit, so a failed charge leaves the tier
// unchanged.
func (s *SubscriptionServiceImpl) UpgradeSubscription(ctx context.Context, caller string, tier domain.SubscriptionTier, asset string) (*domain.Account, error) {
	if !tier.Valid() {
		return nil, apperror.ErrInvalidTier()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByAddressForUpdate(ctx, dbTx, caller)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("Account")
	}
	if !account.IsActive {
		return nil, apperror.ErrAccountDeactivated()
	}
	if account.SubscriptionTier == tier {
		return nil, apperror.Validation("account already holds this tier")
	}

	if tier > account.SubscriptionTier {
		price, found, err := s.pricingRepo.GetTierPrice(ctx, tier, asset)
		if err != nil {
			return nil, apperror.ErrDatabaseError(err)
		}
		if !found {
			return nil, apperror.ErrNotFound("Tier price")
		}
		if price > 0 {
			related := tier.String()
			if _, err := s.ledger.Debit(ctx, dbTx, caller, asset, price, domain.TransactionKindSubscriptionDebit, &related); err != nil {
				return nil, err
			}
		}
	}

	if err := s.accountRepo.UpdateTier(ctx, dbTx, caller, tier); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update tier: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit subscription change: %w", err))
	}

	account.SubscriptionTier = tier

	s.log.Info().
		Str("address", caller).
		Str("tier", tier.String()).
		Msg("subscription tier changed")
	return account, nil
}
