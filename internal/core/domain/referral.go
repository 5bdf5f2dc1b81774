package domain

import "time"

// ReferralRecord accrues pending commission owed to a referrer for one
// referee, per asset. Pending commission only grows through spend events and
// is zeroed atomically with the claim credit.
type ReferralRecord struct {
	ReferrerAddress   string    `json:"referrer_address"`
	RefereeAddress    string    `json:"referee_address"`
	Asset             string    `json:"asset"`
	PendingCommission int64     `json:"pending_commission"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CommissionFor computes the commission owed on a spend amount at the given
// platform rate in basis points, floor rounded.
func CommissionFor(amount int64, rateBps int64) int64 {
	return amount * rateBps / 10_000
}

// LoyaltyPointsFor computes loyalty points earned on a spend amount:
// one point per whole asset unit spent, floor rounded. unitSize is the number
// of minor units in one whole unit of the asset.
func LoyaltyPointsFor(amount int64, unitSize int64) int64 {
	if unitSize <= 0 {
		return 0
	}
	return amount / unitSize
}
