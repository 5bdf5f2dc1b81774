package ports

import (
	"context"
	"time"

	"nodefoundry-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// LedgerService is the wallet ledger: the sole path by which any balance
// changes. Deposit and Withdraw are external entry points; Credit and Debit
// are transaction-scoped primitives composed by the other domain services so
// that a whole entry point commits or aborts as one unit.
type LedgerService interface {
	Deposit(ctx context.Context, address, asset string, amount int64) (*domain.Transaction, error)
	Withdraw(ctx context.Context, address, asset string, amount int64) (*domain.Transaction, error)
	GetBalance(ctx context.Context, address, asset string) (int64, error)
	ListBalances(ctx context.Context, address string) ([]domain.AssetBalance, error)

	// Credit adds amount to the account's balance inside tx and appends the
	// audit transaction.
	Credit(ctx context.Context, tx pgx.Tx, address, asset string, amount int64, kind domain.TransactionKind, relatedID *string) (*domain.Transaction, error)
	// Debit removes amount from the account's balance inside tx, appends the
	// audit transaction, and for spend kinds accrues total_spent, loyalty
	// points and referral commission.
	Debit(ctx context.Context, tx pgx.Tx, address, asset string, amount int64, kind domain.TransactionKind, relatedID *string) (*domain.Transaction, error)
}

// UsageService meters infra usage sessions.
type UsageService interface {
	StartUsage(ctx context.Context, caller, infraID string, model domain.PricingModel) (*domain.UsageSession, error)
	StopUsage(ctx context.Context, caller string, sessionID int64) (*domain.UsageSession, error)
	GetSession(ctx context.Context, sessionID int64) (*domain.UsageSession, error)
}

// SubscriptionService manages subscription tier changes.
type SubscriptionService interface {
	UpgradeSubscription(ctx context.Context, caller string, tier domain.SubscriptionTier, asset string) (*domain.Account, error)
}

// ReferralService manages referral commission claims.
type ReferralService interface {
	// ClaimReferralBonus credits every pending per-asset commission total to
	// the caller and zeroes the pending records atomically.
	ClaimReferralBonus(ctx context.Context, caller string) ([]domain.AssetBalance, error)
	ListReferralRecords(ctx context.Context, caller string) ([]domain.ReferralRecord, error)
}

// EscrowService drives the order escrow state machine.
type EscrowService interface {
	CreateOrder(ctx context.Context, caller string, req CreateOrderRequest) (*domain.Order, error)
	FundOrder(ctx context.Context, caller string, orderID int64) (*domain.Order, error)
	ReleaseOrder(ctx context.Context, caller string, orderID int64) (*domain.Order, error)
	RefundOrder(ctx context.Context, caller string, orderID int64) (*domain.Order, error)
	DisputeOrder(ctx context.Context, caller string, orderID int64) (*domain.Order, error)
	CancelOrder(ctx context.Context, caller string, orderID int64) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, buyer string) ([]domain.Order, error)
}

// CreateOrderRequest holds validated input for order creation.
type CreateOrderRequest struct {
	ProviderInfraID string
	Amount          int64
	Asset           string
}

// AdminService is the admin capability gate plus the admin-only platform
// configuration mutations.
type AdminService interface {
	// RequireAdmin fails with Unauthorized unless caller is the configured
	// admin account.
	RequireAdmin(caller string) error
	WhitelistToken(ctx context.Context, caller, asset string) error
	RemoveTokenWhitelist(ctx context.Context, caller, asset string) error
	SetInfraPricing(ctx context.Context, caller string, pricing *domain.InfraPricing) error
	SetTierPrice(ctx context.Context, caller string, tier domain.SubscriptionTier, asset string, price int64) error
	VerifyAccount(ctx context.Context, caller, address string) error
	DeactivateAccount(ctx context.Context, caller, address string) error
}

// AuthService covers account registration and login.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
	GetAccount(ctx context.Context, address string) (*domain.Account, error)
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Username     string
	Email        string
	Password     string
	ReferralCode *string // referrer's code, optional
}

// RegisterResponse holds the registration result.
type RegisterResponse struct {
	Address      string
	ReferralCode string
}

// ReportingService provides the read-only query surface.
type ReportingService interface {
	GetPlatformStats(ctx context.Context) (*domain.PlatformStats, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// StatsCache caches platform stats snapshots.
type StatsCache interface {
	Get(ctx context.Context) (*domain.PlatformStats, error)
	Set(ctx context.Context, stats *domain.PlatformStats, ttl time.Duration) error
}

// AuditService records audit log entries.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(address string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Address string
}

// Directory is the infra directory collaborator consumed before usage and
// order operations. It is external to this service.
type Directory interface {
	InfraExists(ctx context.Context, infraID string) (bool, error)
	InfraStatus(ctx context.Context, infraID string) (domain.InfraStatus, error)
	// InfraOwner resolves the provider payout account for an infra listing.
	InfraOwner(ctx context.Context, infraID string) (string, error)
}
