package dto

import "nodefoundry-ledger/internal/core/domain"

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username     string  `json:"username" binding:"required,min=3,max=50"`
	Email        string  `json:"email" binding:"required,email,max=255"`
	Password     string  `json:"password" binding:"required,min=8,max=128"`
	ReferralCode *string `json:"referral_code,omitempty"`
}

// LoginRequest is the request body for account login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	Address      string `json:"address"`
	ReferralCode string `json:"referral_code"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// MoveFundsRequest is the request body for deposits and withdrawals.
type MoveFundsRequest struct {
	Asset  string `json:"asset" binding:"required,safe_id,max=20"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

// StartUsageRequest is the request body for starting a usage session.
type StartUsageRequest struct {
	InfraID      string `json:"infra_id" binding:"required,safe_id,max=100"`
	PricingModel string `json:"pricing_model" binding:"required,oneof=HOURLY MONTHLY PAY_PER_USE"`
}

// UpgradeSubscriptionRequest is the request body for a tier change.
type UpgradeSubscriptionRequest struct {
	Tier  string `json:"tier" binding:"required,oneof=BASIC PREMIUM ENTERPRISE"`
	Asset string `json:"asset" binding:"required,safe_id,max=20"`
}

// CreateOrderRequest is the request body for order creation.
type CreateOrderRequest struct {
	ProviderInfraID string `json:"provider_infra_id" binding:"required,safe_id,max=100"`
	Amount          int64  `json:"amount" binding:"required,gt=0"`
	Asset           string `json:"asset" binding:"required,safe_id,max=20"`
}

// WhitelistTokenRequest is the request body for asset whitelisting.
type WhitelistTokenRequest struct {
	Asset string `json:"asset" binding:"required,safe_id,max=20"`
}

// InfraPricingRequest is the request body for setting an infra price card.
type InfraPricingRequest struct {
	InfraID string `json:"infra_id" binding:"required,safe_id,max=100"`
	Model   string `json:"model" binding:"required,oneof=HOURLY MONTHLY PAY_PER_USE"`
	Rate    int64  `json:"rate" binding:"required,gt=0"`
	Asset   string `json:"asset" binding:"required,safe_id,max=20"`
}

// TierPriceRequest is the request body for setting a subscription tier price.
type TierPriceRequest struct {
	Tier  string `json:"tier" binding:"required,oneof=PREMIUM ENTERPRISE"`
	Asset string `json:"asset" binding:"required,safe_id,max=20"`
	Price int64  `json:"price" binding:"required,gt=0"`
}

// TransactionResponse is the response body for one ledger movement.
type TransactionResponse struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Amount    int64   `json:"amount"`
	Asset     string  `json:"asset"`
	RelatedID *string `json:"related_id,omitempty"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

// BalanceListResponse wraps an account's per-asset balances.
type BalanceListResponse struct {
	Balances []domain.AssetBalance `json:"balances"`
}

// ClaimResponse is the response body for a referral bonus claim.
type ClaimResponse struct {
	Claimed []domain.AssetBalance `json:"claimed"`
}

// TransactionListResponse wraps a paginated transaction list.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// ParseTier maps a request tier string to its domain value.
func ParseTier(s string) (domain.SubscriptionTier, bool) {
	switch s {
	case "BASIC":
		return domain.TierBasic, true
	case "PREMIUM":
		return domain.TierPremium, true
	case "ENTERPRISE":
		return domain.TierEnterprise, true
	}
	return 0, false
}
