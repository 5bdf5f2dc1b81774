package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister       AuditAction = "REGISTER"
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionDeposit        AuditAction = "DEPOSIT"
	AuditActionWithdraw       AuditAction = "WITHDRAW"
	AuditActionStartUsage     AuditAction = "START_USAGE"
	AuditActionStopUsage      AuditAction = "STOP_USAGE"
	AuditActionUpgradeTier    AuditAction = "UPGRADE_TIER"
	AuditActionClaimReferral  AuditAction = "CLAIM_REFERRAL"
	AuditActionOrderMutation  AuditAction = "ORDER_MUTATION"
	AuditActionAdminWhitelist AuditAction = "ADMIN_WHITELIST"
	AuditActionAdminPricing   AuditAction = "ADMIN_PRICING"
	AuditActionAdminVerify    AuditAction = "ADMIN_VERIFY"
)

// AuditLog records a single audited HTTP action. Balance-affecting detail
// lives in the transactions ledger; this log covers who called what, from
// where, including admin configuration changes that move no funds.
type AuditLog struct {
	ID             uuid.UUID   `json:"id"`
	AccountAddress *string     `json:"account_address,omitempty"`
	Action         AuditAction `json:"action"`
	ResourceType   string      `json:"resource_type"`
	ResourceID     string      `json:"resource_id,omitempty"`
	Details        string      `json:"details,omitempty"` // JSON string
	IPAddress      string      `json:"ip_address"`
	CreatedAt      time.Time   `json:"created_at"`
}
