package service

import (
	"context"
	"fmt"

	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// ReferralServiceImpl implements ports.ReferralService.
type ReferralServiceImpl struct {
	referralRepo ports.ReferralRepository
	ledger       ports.LedgerService
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewReferralService creates a new ReferralServiceImpl.
func NewReferralService(
	referralRepo ports.ReferralRepository,
	ledger ports.LedgerService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *ReferralServiceImpl {
	return &ReferralServiceImpl{
		referralRepo: referralRepo,
		ledger:       ledger,
		transactor:   transactor,
		log:          log,
	}
}

// ClaimReferralBonus credits every pending per-asset commission total to the
// caller and zeroes the pending records. Claiming twice in a row fails: the
// second call finds nothing pending.
func (s *ReferralServiceImpl) ClaimReferralBonus(ctx context.Context, caller string) ([]domain.AssetBalance, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	records, err := s.referralRepo.ListPendingForUpdate(ctx, dbTx, caller)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock referral records: %w", err))
	}
	if len(records) == 0 {
		return nil, apperror.ErrNothingToClaim()
	}

	// Pending commission is tracked per (referee, asset); credits are per asset.
	totals := map[string]int64{}
	order := []string{}
	for _, rec := range records {
		if _, seen := totals[rec.Asset]; !seen {
			order = append(order, rec.Asset)
		}
		totals[rec.Asset] += rec.PendingCommission
	}

	var claimed []domain.AssetBalance
	for _, asset := range order {
		if _, err := s.ledger.Credit(ctx, dbTx, caller, asset, totals[asset], domain.TransactionKindReferralCredit, nil); err != nil {
			return nil, err
		}
		claimed = append(claimed, domain.AssetBalance{Asset: asset, Amount: totals[asset]})
	}

	if err := s.referralRepo.ZeroPending(ctx, dbTx, caller); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("zero pending commission: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit referral claim: %w", err))
	}

	s.log.Info().
		Str("address", caller).
		Int("assets", len(claimed)).
		Msg("referral commission claimed")
	return claimed, nil
}

// ListReferralRecords returns the caller's referral records, claimed or not.
func (s *ReferralServiceImpl) ListReferralRecords(ctx context.Context, caller string) ([]domain.ReferralRecord, error) {
	records, err := s.referralRepo.ListByReferrer(ctx, caller)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return records, nil
}
