package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// It maps HTTP methods and paths to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		action, resourceType := mapPathToAction(c.Request.URL.Path, c.Request.Method)
		if action == "" {
			return
		}

		var address *string
		if v, exists := c.Get(CtxAccountAddress); exists {
			if addr, ok := v.(string); ok {
				address = &addr
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:             uuid.New(),
			AccountAddress: address,
			Action:         action,
			ResourceType:   resourceType,
			IPAddress:      c.ClientIP(),
			Details:        string(details),
			CreatedAt:      time.Now(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/auth/register" && method == "POST":
		return domain.AuditActionRegister, "account"
	case path == "/api/v1/auth/login" && method == "POST":
		return domain.AuditActionLogin, "session"
	case path == "/api/v1/wallet/deposit" && method == "POST":
		return domain.AuditActionDeposit, "wallet"
	case path == "/api/v1/wallet/withdraw" && method == "POST":
		return domain.AuditActionWithdraw, "wallet"
	case path == "/api/v1/usage/start" && method == "POST":
		return domain.AuditActionStartUsage, "session"
	case strings.HasPrefix(path, "/api/v1/usage/") && strings.HasSuffix(path, "/stop") && method == "POST":
		return domain.AuditActionStopUsage, "session"
	case path == "/api/v1/subscription/upgrade" && method == "POST":
		return domain.AuditActionUpgradeTier, "account"
	case path == "/api/v1/referrals/claim" && method == "POST":
		return domain.AuditActionClaimReferral, "referral"
	case strings.HasPrefix(path, "/api/v1/orders") && method == "POST":
		return domain.AuditActionOrderMutation, "order"
	case strings.HasPrefix(path, "/api/v1/admin/tokens"):
		return domain.AuditActionAdminWhitelist, "asset"
	case strings.HasPrefix(path, "/api/v1/admin/pricing"):
		return domain.AuditActionAdminPricing, "pricing"
	case strings.HasPrefix(path, "/api/v1/admin/accounts"):
		return domain.AuditActionAdminVerify, "account"
	}
	return "", ""
}
