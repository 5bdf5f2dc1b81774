package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"nodefoundry-ledger/config"
	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// UsageServiceImpl implements ports.UsageService.
type UsageServiceImpl struct {
	sessionRepo ports.SessionRepository
	pricingRepo ports.PricingRepository
	ledger      ports.LedgerService
	directory   ports.Directory
	accountRepo ports.AccountRepository
	transactor  ports.DBTransactor
	platform    config.PlatformConfig
	log         zerolog.Logger

	now func() time.Time
}

// NewUsageService creates a new UsageServiceImpl.
func NewUsageService(
	sessionRepo ports.SessionRepository,
	pricingRepo ports.PricingRepository,
	ledger ports.LedgerService,
	directory ports.Directory,
	accountRepo ports.AccountRepository,
	transactor ports.DBTransactor,
	platform config.PlatformConfig,
	log zerolog.Logger,
) *UsageServiceImpl {
	return &UsageServiceImpl{
		sessionRepo: sessionRepo,
		pricingRepo: pricingRepo,
		ledger:      ledger,
		directory:   directory,
		accountRepo: accountRepo,
		transactor:  transactor,
		platform:    platform,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// StartUsage opens a metered session for the caller on an infra listing.
func (s *UsageServiceImpl) StartUsage(ctx context.Context, caller, infraID string, model domain.PricingModel) (*domain.UsageSession, error) {
	if !model.Valid() {
		return nil, apperror.Validation("unknown pricing model")
	}

	account, err := s.accountRepo.GetByAddress(ctx, caller)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if account == nil {
		return nil, apperror.ErrNotFound("Account")
	}
	if !account.IsActive {
		return nil, apperror.ErrAccountDeactivated()
	}
	if !account.IsVerified {
		return nil, apperror.ErrAccountNotVerified()
	}

	status, err := s.directory.InfraStatus(ctx, infraID)
	if err != nil {
		return nil, err
	}
	if status != domain.InfraStatusActive {
		return nil, apperror.ErrInfraNotActive(infraID)
	}

	pricing, err := s.pricingRepo.GetInfraPricing(ctx, infraID, model)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if pricing == nil {
		return nil, apperror.ErrNotFound("Infra pricing")
	}

	active, err := s.sessionRepo.HasActive(ctx, caller, infraID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if active {
		return nil, apperror.ErrSessionAlreadyActive()
	}

	session := &domain.UsageSession{
		InfraID:        infraID,
		AccountAddress: caller,
		PricingModel:   model,
		Rate:           pricing.Rate,
		Asset:          pricing.Asset,
		IsActive:       true,
		StartedAt:      s.now(),
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.sessionRepo.Create(ctx, dbTx, session); err != nil {
		// A concurrent start can slip past the HasActive check; the
		// storage layer's uniqueness guarantee is authoritative.
		if errors.Is(err, ports.ErrDuplicateActiveSession) {
			return nil, apperror.ErrSessionAlreadyActive()
		}
		return nil, apperror.InternalError(fmt.Errorf("create session: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit session: %w", err))
	}

	s.log.Info().
		Int64("session_id", session.ID).
		Str("address", caller).
		Str("infra_id", infraID).
		Str("model", string(model)).
		Msg("usage session started")
	return session, nil
}

// StopUsage closes the caller's session and settles the accrued cost. When the
// balance cannot cover the cost the whole operation aborts and the session
// stays active.
func (s *UsageServiceImpl) StopUsage(ctx context.Context, caller string, sessionID int64) (*domain.UsageSession, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	session, err := s.sessionRepo.GetByIDForUpdate(ctx, dbTx, sessionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock session: %w", err))
	}
	if session == nil {
		return nil, apperror.ErrNotFound("Usage session")
	}
	if session.AccountAddress != caller {
		return nil, apperror.ErrUnauthorized()
	}
	if !session.IsActive {
		return nil, apperror.ErrSessionNotActive()
	}

	endedAt := s.now()
	elapsed := endedAt.Sub(session.StartedAt)
	// Zero means uncapped.
	if s.platform.MaxSessionHours > 0 {
		if max := time.Duration(s.platform.MaxSessionHours) * time.Hour; elapsed > max {
			elapsed = max
		}
	}

	cost := session.BillableCost(elapsed)
	if cost > 0 {
		related := strconv.FormatInt(session.ID, 10)
		if _, err := s.ledger.Debit(ctx, dbTx, caller, session.Asset, cost, domain.TransactionKindUsageDebit, &related); err != nil {
			return nil, err
		}
	}

	if err := s.sessionRepo.Close(ctx, dbTx, session.ID, cost, endedAt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("close session: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit stop usage: %w", err))
	}

	session.AccruedCost = cost
	session.IsActive = false
	session.EndedAt = &endedAt

	s.log.Info().
		Int64("session_id", session.ID).
		Str("address", caller).
		Int64("cost", cost).
		Msg("usage session stopped")
	return session, nil
}

// GetSession fetches one session by id.
func (s *UsageServiceImpl) GetSession(ctx context.Context, sessionID int64) (*domain.UsageSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if session == nil {
		return nil, apperror.ErrNotFound("Usage session")
	}
	return session, nil
}
