package service

import (
	"context"
	"time"

	"nodefoundry-ledger/config"
	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

const statsCacheTTL = 30 * time.Second

// reportingService implements ports.ReportingService.
type reportingService struct {
	accountRepo ports.AccountRepository
	sessionRepo ports.SessionRepository
	orderRepo   ports.OrderRepository
	txRepo      ports.TransactionRepository
	statsCache  ports.StatsCache
	platform    config.PlatformConfig
	log         zerolog.Logger
}

// NewReportingService creates a new reporting service.
// If statsCache is nil, stats are recomputed on every call.
func NewReportingService(
	accountRepo ports.AccountRepository,
	sessionRepo ports.SessionRepository,
	orderRepo ports.OrderRepository,
	txRepo ports.TransactionRepository,
	statsCache ports.StatsCache,
	platform config.PlatformConfig,
	log zerolog.Logger,
) ports.ReportingService {
	return &reportingService{
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		orderRepo:   orderRepo,
		txRepo:      txRepo,
		statsCache:  statsCache,
		platform:    platform,
		log:         log,
	}
}

// GetPlatformStats aggregates the platform-wide counters. A short-lived cache
// snapshot absorbs repeated dashboard polls.
func (s *reportingService) GetPlatformStats(ctx context.Context) (*domain.PlatformStats, error) {
	if s.statsCache != nil {
		cached, err := s.statsCache.Get(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("stats cache read failed, recomputing")
		}
		if cached != nil {
			return cached, nil
		}
	}

	accounts, err := s.accountRepo.Count(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	subscriptions, err := s.accountRepo.CountActiveSubscriptions(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	sessions, err := s.sessionRepo.CountActive(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	escrowed, err := s.orderRepo.SumEscrowed(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	totals, err := s.txRepo.PlatformTotals(ctx, s.platform.TreasuryAddress)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	stats := &domain.PlatformStats{
		TotalAccounts:       accounts,
		TotalDeposits:       totals.TotalDeposits,
		TotalWithdrawals:    totals.TotalWithdrawals,
		ActiveSubscriptions: subscriptions,
		ActiveSessions:      sessions,
		TotalEscrowed:       escrowed,
		FeesCollected:       totals.FeesCollected,
	}

	if s.statsCache != nil {
		if err := s.statsCache.Set(ctx, stats, statsCacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("stats cache write failed")
		}
	}
	return stats, nil
}

// ListTransactions returns a filtered page of the transaction ledger.
func (s *reportingService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	txs, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(err)
	}
	return txs, total, nil
}
