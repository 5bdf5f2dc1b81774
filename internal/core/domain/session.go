package domain

import "time"

// PricingModel determines how a usage session is billed on stop.
type PricingModel string

const (
	PricingModelHourly    PricingModel = "HOURLY"
	PricingModelMonthly   PricingModel = "MONTHLY"
	PricingModelPayPerUse PricingModel = "PAY_PER_USE"
)

// Valid returns true for a known pricing model.
func (m PricingModel) Valid() bool {
	switch m {
	case PricingModelHourly, PricingModelMonthly, PricingModelPayPerUse:
		return true
	}
	return false
}

// UsageSession is one metered interval of infra consumption.
// At most one active session exists per (account, infra) pair.
type UsageSession struct {
	ID             int64        `json:"id"`
	InfraID        string       `json:"infra_id"`
	AccountAddress string       `json:"account_address"`
	PricingModel   PricingModel `json:"pricing_model"`
	Rate           int64        `json:"rate"`  // minor units; per hour, per month or per call
	Asset          string       `json:"asset"` // billing asset, captured at start
	AccruedCost    int64        `json:"accrued_cost"`
	IsActive       bool         `json:"is_active"`
	StartedAt      time.Time    `json:"started_at"`
	EndedAt        *time.Time   `json:"ended_at,omitempty"`
}

// BillableCost computes the cost of the session for the given elapsed
// duration. Hourly sessions round partial hours up to the next whole hour.
func (s *UsageSession) BillableCost(elapsed time.Duration) int64 {
	if elapsed < 0 {
		elapsed = 0
	}
	switch s.PricingModel {
	case PricingModelHourly:
		secs := int64(elapsed / time.Second)
		hours := (secs + 3599) / 3600
		return s.Rate * hours
	case PricingModelMonthly:
		return s.Rate
	case PricingModelPayPerUse:
		return s.Rate
	default:
		return 0
	}
}

// InfraPricing is the admin-configured price card for one infra listing.
type InfraPricing struct {
	InfraID   string       `json:"infra_id"`
	Model     PricingModel `json:"model"`
	Rate      int64        `json:"rate"`
	Asset     string       `json:"asset"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// InfraStatus is the directory collaborator's view of an infra listing.
type InfraStatus string

const (
	InfraStatusActive   InfraStatus = "ACTIVE"
	InfraStatusInactive InfraStatus = "INACTIVE"
)
