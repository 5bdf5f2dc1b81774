package domain

import "time"

// OrderState is a node of the order escrow state machine.
type OrderState string

const (
	OrderStateCreated   OrderState = "CREATED"
	OrderStateFunded    OrderState = "FUNDED"
	OrderStateFulfilled OrderState = "FULFILLED"
	OrderStateDisputed  OrderState = "DISPUTED"
	OrderStateCancelled OrderState = "CANCELLED"
	OrderStateClosed    OrderState = "CLOSED"
)

// Order is an escrow-protected purchase of infra capacity.
// EscrowedAmount is held by the order itself, outside the buyer's spendable
// balance, and is nonzero only in the Funded and Disputed states.
type Order struct {
	ID              int64      `json:"id"`
	BuyerAddress    string     `json:"buyer_address"`
	ProviderInfraID string     `json:"provider_infra_id"`
	ProviderAddress string     `json:"provider_address"` // resolved from the directory at creation
	Amount          int64      `json:"amount"`
	Asset           string     `json:"asset"`
	EscrowedAmount  int64      `json:"escrowed_amount"`
	State           OrderState `json:"state"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// CanFund reports whether fund_order is allowed from the current state.
func (o *Order) CanFund() bool {
	return o.State == OrderStateCreated
}

// CanRelease reports whether release_order is allowed from the current state.
func (o *Order) CanRelease() bool {
	return o.State == OrderStateFunded || o.State == OrderStateDisputed
}

// CanRefund reports whether refund_order is allowed from the current state.
func (o *Order) CanRefund() bool {
	return o.State == OrderStateFunded || o.State == OrderStateDisputed
}

// CanDispute reports whether dispute_order is allowed from the current state.
func (o *Order) CanDispute() bool {
	return o.State == OrderStateFunded
}

// CanCancel reports whether cancel_order is allowed from the current state.
// Cancelling a Created order moves no funds; cancelling a Funded one refunds.
func (o *Order) CanCancel() bool {
	return o.State == OrderStateCreated || o.State == OrderStateFunded
}

// IsTerminal reports whether the order has reached its final state.
func (o *Order) IsTerminal() bool {
	return o.State == OrderStateClosed
}
