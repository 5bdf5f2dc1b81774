package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind classifies a ledger movement.
type TransactionKind string

const (
	TransactionKindDeposit           TransactionKind = "DEPOSIT"
	TransactionKindWithdrawal        TransactionKind = "WITHDRAWAL"
	TransactionKindUsageDebit        TransactionKind = "USAGE_DEBIT"
	TransactionKindSubscriptionDebit TransactionKind = "SUBSCRIPTION_DEBIT"
	TransactionKindEscrowLock        TransactionKind = "ESCROW_LOCK"
	TransactionKindEscrowRelease     TransactionKind = "ESCROW_RELEASE"
	TransactionKindEscrowRefund      TransactionKind = "ESCROW_REFUND"
	TransactionKindReferralCredit    TransactionKind = "REFERRAL_CREDIT"
)

// IsSpend reports whether a debit of this kind counts as spend for
// total_spent, loyalty points and referral commission accrual.
func (k TransactionKind) IsSpend() bool {
	return k == TransactionKindUsageDebit || k == TransactionKindSubscriptionDebit
}

// TransactionStatus is the final status of a ledger movement.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is an immutable, append-only audit record of one balance change.
// Every credit or debit of any account writes exactly one Transaction in the
// same database transaction as the balance mutation.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	AccountAddress string            `json:"account_address"`
	Kind           TransactionKind   `json:"kind"`
	Amount         int64             `json:"amount"`
	Asset          string            `json:"asset"`
	RelatedID      *string           `json:"related_id,omitempty"` // order or session id
	Status         TransactionStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
}
