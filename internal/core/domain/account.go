package domain

import "time"

// SubscriptionTier is the account's subscription level.
type SubscriptionTier int

const (
	TierBasic      SubscriptionTier = 0
	TierPremium    SubscriptionTier = 1
	TierEnterprise SubscriptionTier = 2
)

// Valid returns true for a known tier.
func (t SubscriptionTier) Valid() bool {
	return t >= TierBasic && t <= TierEnterprise
}

func (t SubscriptionTier) String() string {
	switch t {
	case TierBasic:
		return "BASIC"
	case TierPremium:
		return "PREMIUM"
	case TierEnterprise:
		return "ENTERPRISE"
	default:
		return "UNKNOWN"
	}
}

// Account represents a marketplace ledger account.
// Accounts are never deleted, only soft-deactivated.
type Account struct {
	Address          string           `json:"address"`
	Username         string           `json:"username"`
	Email            string           `json:"email"`
	PasswordHash     string           `json:"-"` // Never expose
	ReferralCode     string           `json:"referral_code"`
	ReferredBy       *string          `json:"referred_by,omitempty"`
	TotalSpent       int64            `json:"total_spent"`
	LoyaltyPoints    int64            `json:"loyalty_points"`
	SubscriptionTier SubscriptionTier `json:"subscription_tier"`
	IsVerified       bool             `json:"is_verified"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// AssetBalance is one (asset, amount) entry of an account's wallet.
// Amounts are minor units of the asset and never negative.
type AssetBalance struct {
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
}
