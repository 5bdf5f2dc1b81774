package ports

import (
	"context"
	"errors"
	"time"

	"nodefoundry-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx run inside an entry point's database transaction.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByAddress(ctx context.Context, address string) (*domain.Account, error)
	GetByAddressForUpdate(ctx context.Context, tx pgx.Tx, address string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.Account, error)
	UpdateTier(ctx context.Context, tx pgx.Tx, address string, tier domain.SubscriptionTier) error
	// AddSpend bumps total_spent and loyalty_points after a spend debit.
	AddSpend(ctx context.Context, tx pgx.Tx, address string, amount, points int64) error
	SetVerified(ctx context.Context, address string, verified bool) error
	SetActive(ctx context.Context, address string, active bool) error
	Count(ctx context.Context) (int64, error)
	CountActiveSubscriptions(ctx context.Context) (int64, error)
}

// BalanceRepository defines persistence for per-(account, asset) balances.
// Balances are only ever written through the WalletLedger primitives.
type BalanceRepository interface {
	Get(ctx context.Context, address, asset string) (int64, error)
	// GetForUpdate locks the balance row. found is false when no row exists,
	// which callers treat as a zero balance.
	GetForUpdate(ctx context.Context, tx pgx.Tx, address, asset string) (amount int64, found bool, err error)
	// Upsert sets the absolute balance amount within a transaction.
	Upsert(ctx context.Context, tx pgx.Tx, address, asset string, amount int64) error
	ListByAccount(ctx context.Context, address string) ([]domain.AssetBalance, error)
}

// TransactionRepository defines persistence for the append-only audit ledger.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	// PlatformTotals aggregates completed transactions for platform stats.
	// treasuryAddress identifies fee credits.
	PlatformTotals(ctx context.Context, treasuryAddress string) (*PlatformTotals, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	AccountAddress string
	Kind           *domain.TransactionKind
	Asset          *string
	From           *int64 // Unix timestamp
	To             *int64 // Unix timestamp
	Page           int
	PageSize       int
}

// PlatformTotals holds ledger-wide sums used by get_platform_stats.
type PlatformTotals struct {
	TotalDeposits    int64
	TotalWithdrawals int64
	FeesCollected    int64
}

// ErrDuplicateActiveSession is returned by SessionRepository.Create when an
// active session already exists for the same (account, infra) pair. It backs
// the one-active-session invariant against concurrent starts that both pass
// the HasActive pre-check.
var ErrDuplicateActiveSession = errors.New("active session already exists")

// SessionRepository defines persistence for usage sessions.
type SessionRepository interface {
	// Create inserts a session and fills its sequence-allocated ID.
	// Returns ErrDuplicateActiveSession when the one-active-session
	// invariant would be violated.
	Create(ctx context.Context, tx pgx.Tx, session *domain.UsageSession) error
	GetByID(ctx context.Context, id int64) (*domain.UsageSession, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.UsageSession, error)
	HasActive(ctx context.Context, address, infraID string) (bool, error)
	// Close finalizes a session: accrued cost, end time, active=false.
	Close(ctx context.Context, tx pgx.Tx, id int64, accruedCost int64, endedAt time.Time) error
	CountActive(ctx context.Context) (int64, error)
}

// OrderRepository defines persistence for escrow orders.
type OrderRepository interface {
	// Create inserts an order and fills its sequence-allocated ID.
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error)
	UpdateState(ctx context.Context, tx pgx.Tx, id int64, state domain.OrderState) error
	// SetFunded records the escrowed amount and moves the order to Funded.
	SetFunded(ctx context.Context, tx pgx.Tx, id int64, escrowed int64) error
	// Resolve zeroes the escrowed amount and writes the terminal state.
	Resolve(ctx context.Context, tx pgx.Tx, id int64, state domain.OrderState, resolvedAt time.Time) error
	SumEscrowed(ctx context.Context) (int64, error)
	ListByBuyer(ctx context.Context, address string) ([]domain.Order, error)
}

// ReferralRepository defines persistence for referral commission records.
type ReferralRepository interface {
	// Accrue adds amount to the (referrer, referee, asset) pending commission,
	// creating the record if needed.
	Accrue(ctx context.Context, tx pgx.Tx, referrer, referee, asset string, amount int64) error
	// ListPendingForUpdate locks and returns all records with pending
	// commission for the given referrer.
	ListPendingForUpdate(ctx context.Context, tx pgx.Tx, referrer string) ([]domain.ReferralRecord, error)
	// ZeroPending clears all pending commission for the referrer.
	ZeroPending(ctx context.Context, tx pgx.Tx, referrer string) error
	ListByReferrer(ctx context.Context, referrer string) ([]domain.ReferralRecord, error)
}

// AssetRepository maintains the admin-managed asset whitelist.
type AssetRepository interface {
	SetWhitelisted(ctx context.Context, asset string, enabled bool) error
	IsWhitelisted(ctx context.Context, asset string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// PricingRepository stores admin-configured infra and tier pricing.
type PricingRepository interface {
	SetInfraPricing(ctx context.Context, pricing *domain.InfraPricing) error
	GetInfraPricing(ctx context.Context, infraID string, model domain.PricingModel) (*domain.InfraPricing, error)
	SetTierPrice(ctx context.Context, tier domain.SubscriptionTier, asset string, price int64) error
	// GetTierPrice returns found=false when no price is configured.
	GetTierPrice(ctx context.Context, tier domain.SubscriptionTier, asset string) (price int64, found bool, err error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
