package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"nodefoundry-ledger/config"
	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// EscrowServiceImpl implements ports.EscrowService. An order walks
// Created -> Funded -> Fulfilled or Cancelled -> Closed, with Disputed as a
// detour out of Funded that only the admin can resolve. Funds move exclusively
// through the ledger primitives inside the same transaction as the state
// write.
type EscrowServiceImpl struct {
	orderRepo   ports.OrderRepository
	accountRepo ports.AccountRepository
	ledger      ports.LedgerService
	directory   ports.Directory
	admin       ports.AdminService
	transactor  ports.DBTransactor
	platform    config.PlatformConfig
	log         zerolog.Logger

	now func() time.Time
}

// NewEscrowService creates a new EscrowServiceImpl.
func NewEscrowService(
	orderRepo ports.OrderRepository,
	accountRepo ports.AccountRepository,
	ledger ports.LedgerService,
	directory ports.Directory,
	admin ports.AdminService,
	transactor ports.DBTransactor,
	platform config.PlatformConfig,
	log zerolog.Logger,
) *EscrowServiceImpl {
	return &EscrowServiceImpl{
		orderRepo:   orderRepo,
		accountRepo: accountRepo,
		ledger:      ledger,
		directory:   directory,
		admin:       admin,
		transactor:  transactor,
		platform:    platform,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder opens an unfunded order against an infra listing. The provider
// payout account is resolved from the directory at creation time and pinned on
// the order.
func (s *EscrowServiceImpl) CreateOrder(ctx context.Context, caller string, req ports.CreateOrderRequest) (*domain.Order, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
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

	provider, err := s.directory.InfraOwner(ctx, req.ProviderInfraID)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		BuyerAddress:    caller,
		ProviderInfraID: req.ProviderInfraID,
		ProviderAddress: provider,
		Amount:          req.Amount,
		Asset:           req.Asset,
		State:           domain.OrderStateCreated,
		CreatedAt:       s.now(),
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create order: %w", err))
	}

	s.log.Info().
		Int64("order_id", order.ID).
		Str("buyer", caller).
		Str("infra_id", req.ProviderInfraID).
		Int64("amount", req.Amount).
		Msg("order created")
	return order, nil
}

// FundOrder locks the order amount out of the buyer's balance into escrow.
func (s *EscrowServiceImpl) FundOrder(ctx context.Context, caller string, orderID int64) (*domain.Order, error) {
	return s.mutate(ctx, orderID, func(dbTx pgx.Tx, order *domain.Order) error {
		if order.BuyerAddress != caller {
			return apperror.ErrUnauthorized()
		}
		if !order.CanFund() {
			return apperror.ErrOrderStateMismatch(string(order.State))
		}

		related := strconv.FormatInt(order.ID, 10)
		if _, err := s.ledger.Debit(ctx, dbTx, order.BuyerAddress, order.Asset, order.Amount, domain.TransactionKindEscrowLock, &related); err != nil {
			return err
		}
		if err := s.orderRepo.SetFunded(ctx, dbTx, order.ID, order.Amount); err != nil {
			return apperror.InternalError(fmt.Errorf("set funded: %w", err))
		}

		order.EscrowedAmount = order.Amount
		order.State = domain.OrderStateFunded
		return nil
	})
}

// ReleaseOrder pays the escrowed amount out to the provider, minus the
// platform fee which goes to the treasury. The buyer releases a Funded order;
// only the admin can release a Disputed one.
func (s *EscrowServiceImpl) ReleaseOrder(ctx context.Context, caller string, orderID int64) (*domain.Order, error) {
	return s.mutate(ctx, orderID, func(dbTx pgx.Tx, order *domain.Order) error {
		if !order.CanRelease() {
			return apperror.ErrOrderStateMismatch(string(order.State))
		}
		if err := s.requireResolver(caller, order); err != nil {
			return err
		}

		fee := order.EscrowedAmount * s.platform.FeeBps / 10_000
		payout := order.EscrowedAmount - fee
		related := strconv.FormatInt(order.ID, 10)

		if _, err := s.ledger.Credit(ctx, dbTx, order.ProviderAddress, order.Asset, payout, domain.TransactionKindEscrowRelease, &related); err != nil {
			return err
		}
		if fee > 0 {
			if _, err := s.ledger.Credit(ctx, dbTx, s.platform.TreasuryAddress, order.Asset, fee, domain.TransactionKindEscrowRelease, &related); err != nil {
				return err
			}
		}

		return s.close(ctx, dbTx, order, domain.OrderStateFulfilled)
	})
}

// RefundOrder returns the full escrowed amount to the buyer. The buyer refunds
// a Funded order; only the admin can refund a Disputed one.
func (s *EscrowServiceImpl) RefundOrder(ctx context.Context, caller string, orderID int64) (*domain.Order, error) {
	return s.mutate(ctx, orderID, func(dbTx pgx.Tx, order *domain.Order) error {
		if !order.CanRefund() {
			return apperror.ErrOrderStateMismatch(string(order.State))
		}
		if err := s.requireResolver(caller, order); err != nil {
			return err
		}

		related := strconv.FormatInt(order.ID, 10)
		if _, err := s.ledger.Credit(ctx, dbTx, order.BuyerAddress, order.Asset, order.EscrowedAmount, domain.TransactionKindEscrowRefund, &related); err != nil {
			return err
		}

		return s.close(ctx, dbTx, order, domain.OrderStateCancelled)
	})
}

// DisputeOrder freezes a Funded order pending admin resolution.
func (s *EscrowServiceImpl) DisputeOrder(ctx context.Context, caller string, orderID int64) (*domain.Order, error) {
	return s.mutate(ctx, orderID, func(dbTx pgx.Tx, order *domain.Order) error {
		if order.BuyerAddress != caller {
			return apperror.ErrUnauthorized()
		}
		if !order.CanDispute() {
			return apperror.ErrOrderStateMismatch(string(order.State))
		}

		if err := s.orderRepo.UpdateState(ctx, dbTx, order.ID, domain.OrderStateDisputed); err != nil {
			return apperror.InternalError(fmt.Errorf("mark disputed: %w", err))
		}
		order.State = domain.OrderStateDisputed
		return nil
	})
}

// CancelOrder voids an order. Cancelling a Funded order refunds the escrow to
// the buyer.
func (s *EscrowServiceImpl) CancelOrder(ctx context.Context, caller string, orderID int64) (*domain.Order, error) {
	return s.mutate(ctx, orderID, func(dbTx pgx.Tx, order *domain.Order) error {
		if order.BuyerAddress != caller {
			return apperror.ErrUnauthorized()
		}
		if !order.CanCancel() {
			return apperror.ErrOrderStateMismatch(string(order.State))
		}

		if order.EscrowedAmount > 0 {
			related := strconv.FormatInt(order.ID, 10)
			if _, err := s.ledger.Credit(ctx, dbTx, order.BuyerAddress, order.Asset, order.EscrowedAmount, domain.TransactionKindEscrowRefund, &related); err != nil {
				return err
			}
		}

		return s.close(ctx, dbTx, order, domain.OrderStateCancelled)
	})
}

// GetOrder fetches one order by id.
func (s *EscrowServiceImpl) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	return order, nil
}

// ListOrders returns a buyer's orders, newest first.
func (s *EscrowServiceImpl) ListOrders(ctx context.Context, buyer string) ([]domain.Order, error) {
	orders, err := s.orderRepo.ListByBuyer(ctx, buyer)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return orders, nil
}

// mutate runs one state-machine step under a locked order row.
func (s *EscrowServiceImpl) mutate(ctx context.Context, orderID int64, fn func(pgx.Tx, *domain.Order) error) (*domain.Order, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	order, err := s.orderRepo.GetByIDForUpdate(ctx, dbTx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}

	if err := fn(dbTx, order); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit order mutation: %w", err))
	}

	s.log.Info().
		Int64("order_id", order.ID).
		Str("state", string(order.State)).
		Msg("order state changed")
	return order, nil
}

// requireResolver authorizes release and refund: the buyer while Funded, the
// admin once Disputed.
func (s *EscrowServiceImpl) requireResolver(caller string, order *domain.Order) error {
	if order.State == domain.OrderStateDisputed {
		return s.admin.RequireAdmin(caller)
	}
	if order.BuyerAddress != caller {
		return apperror.ErrUnauthorized()
	}
	return nil
}

// close records the transient outcome state, then settles the order to Closed.
func (s *EscrowServiceImpl) close(ctx context.Context, dbTx pgx.Tx, order *domain.Order, outcome domain.OrderState) error {
	if err := s.orderRepo.UpdateState(ctx, dbTx, order.ID, outcome); err != nil {
		return apperror.InternalError(fmt.Errorf("mark %s: %w", outcome, err))
	}
	resolvedAt := s.now()
	if err := s.orderRepo.Resolve(ctx, dbTx, order.ID, domain.OrderStateClosed, resolvedAt); err != nil {
		return apperror.InternalError(fmt.Errorf("close order: %w", err))
	}

	order.EscrowedAmount = 0
	order.State = domain.OrderStateClosed
	order.ResolvedAt = &resolvedAt
	return nil
}
