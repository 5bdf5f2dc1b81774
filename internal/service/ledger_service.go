package service

import (
	"context"
	"fmt"
	"time"

	"nodefoundry-ledger/config"
	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService. Every balance mutation in
// the system flows through Credit or Debit so that the balances table and the
// transactions ledger never diverge.
type LedgerServiceImpl struct {
	accountRepo  ports.AccountRepository
	balanceRepo  ports.BalanceRepository
	txRepo       ports.TransactionRepository
	referralRepo ports.ReferralRepository
	assetRepo    ports.AssetRepository
	transactor   ports.DBTransactor
	platform     config.PlatformConfig
	log          zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	accountRepo ports.AccountRepository,
	balanceRepo ports.BalanceRepository,
	txRepo ports.TransactionRepository,
	referralRepo ports.ReferralRepository,
	assetRepo ports.AssetRepository,
	transactor ports.DBTransactor,
	platform config.PlatformConfig,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo:  accountRepo,
		balanceRepo:  balanceRepo,
		txRepo:       txRepo,
		referralRepo: referralRepo,
		assetRepo:    assetRepo,
		transactor:   transactor,
		platform:     platform,
		log:          log,
	}
}

// Deposit credits external funds onto an account's balance.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, address, asset string, amount int64) (*domain.Transaction, error) {
	account, err := s.requireActiveAccount(ctx, address)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.Credit(ctx, dbTx, account.Address, asset, amount, domain.TransactionKindDeposit, nil)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit deposit: %w", err))
	}

	s.log.Info().
		Str("address", address).
		Str("asset", asset).
		Int64("amount", amount).
		Str("tx_id", txn.ID.String()).
		Msg("deposit completed")
	return txn, nil
}

// Withdraw debits funds off an account's balance.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, address, asset string, amount int64) (*domain.Transaction, error) {
	account, err := s.requireActiveAccount(ctx, address)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.Debit(ctx, dbTx, account.Address, asset, amount, domain.TransactionKindWithdrawal, nil)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit withdrawal: %w", err))
	}

	s.log.Info().
		Str("address", address).
		Str("asset", asset).
		Int64("amount", amount).
		Str("tx_id", txn.ID.String()).
		Msg("withdrawal completed")
	return txn, nil
}

// GetBalance returns the balance for one (account, asset) pair.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, address, asset string) (int64, error) {
	amount, err := s.balanceRepo.Get(ctx, address, asset)
	if err != nil {
		return 0, apperror.ErrDatabaseError(err)
	}
	return amount, nil
}

// ListBalances returns every asset balance held by the account.
func (s *LedgerServiceImpl) ListBalances(ctx context.Context, address string) ([]domain.AssetBalance, error) {
	balances, err := s.balanceRepo.ListByAccount(ctx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return balances, nil
}

// Credit adds amount to the account's balance inside tx and appends the audit
// transaction.
func (s *LedgerServiceImpl) Credit(ctx context.Context, tx pgx.Tx, address, asset string, amount int64, kind domain.TransactionKind, relatedID *string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if err := s.requireWhitelisted(ctx, asset); err != nil {
		return nil, err
	}

	current, _, err := s.balanceRepo.GetForUpdate(ctx, tx, address, asset)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}

	if err := s.balanceRepo.Upsert(ctx, tx, address, asset, current+amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit balance: %w", err))
	}

	return s.appendTransaction(ctx, tx, address, asset, amount, kind, relatedID)
}

// Debit removes amount from the account's balance inside tx, appends the audit
// transaction, and for spend kinds accrues loyalty points and referral
// commission.
func (s *LedgerServiceImpl) Debit(ctx context.Context, tx pgx.Tx, address, asset string, amount int64, kind domain.TransactionKind, relatedID *string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if err := s.requireWhitelisted(ctx, asset); err != nil {
		return nil, err
	}

	current, _, err := s.balanceRepo.GetForUpdate(ctx, tx, address, asset)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}
	if current < amount {
		return nil, apperror.ErrInsufficientBalance()
	}

	if err := s.balanceRepo.Upsert(ctx, tx, address, asset, current-amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit balance: %w", err))
	}

	if kind.IsSpend() {
		if err := s.accrueSpend(ctx, tx, address, asset, amount); err != nil {
			return nil, err
		}
	}

	return s.appendTransaction(ctx, tx, address, asset, amount, kind, relatedID)
}

// accrueSpend records the side effects of a spend debit: lifetime spend,
// loyalty points, and referral commission for the account's referrer.
func (s *LedgerServiceImpl) accrueSpend(ctx context.Context, tx pgx.Tx, address, asset string, amount int64) error {
	account, err := s.accountRepo.GetByAddressForUpdate(ctx, tx, address)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return apperror.ErrNotFound("Account")
	}

	points := domain.LoyaltyPointsFor(amount, s.platform.LoyaltyUnit)
	if err := s.accountRepo.AddSpend(ctx, tx, address, amount, points); err != nil {
		return apperror.InternalError(fmt.Errorf("add spend: %w", err))
	}

	if account.ReferredBy != nil {
		commission := domain.CommissionFor(amount, s.platform.CommissionBps)
		if commission > 0 {
			if err := s.referralRepo.Accrue(ctx, tx, *account.ReferredBy, address, asset, commission); err != nil {
				return apperror.InternalError(fmt.Errorf("accrue referral commission: %w", err))
			}
		}
	}
	return nil
}

func (s *LedgerServiceImpl) appendTransaction(ctx context.Context, tx pgx.Tx, address, asset string, amount int64, kind domain.TransactionKind, relatedID *string) (*domain.Transaction, error) {
	txn := &domain.Transaction{
		ID:             uuid.New(),
		AccountAddress: address,
		Kind:           kind,
		Amount:         amount,
		Asset:          asset,
		RelatedID:      relatedID,
		Status:         domain.TransactionStatusCompleted,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.txRepo.Create(ctx, tx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append transaction: %w", err))
	}
	return txn, nil
}

func (s *LedgerServiceImpl) requireActiveAccount(ctx context.Context, address string) (*domain.Account, error) {
	account, err := s.accountRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if account == nil {
		return nil, apperror.ErrNotFound("Account")
	}
	if !account.IsActive {
		return nil, apperror.ErrAccountDeactivated()
	}
	return account, nil
}

func (s *LedgerServiceImpl) requireWhitelisted(ctx context.Context, asset string) error {
	ok, err := s.assetRepo.IsWhitelisted(ctx, asset)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if !ok {
		return apperror.ErrAssetNotWhitelisted(asset)
	}
	return nil
}
