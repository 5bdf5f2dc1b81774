package handler

import (
	"nodefoundry-ledger/internal/adapter/http/dto"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/pkg/apperror"
	"nodefoundry-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles subscription and referral endpoints.
type AccountHandler struct {
	subscriptionSvc ports.SubscriptionService
	referralSvc     ports.ReferralService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(subscriptionSvc ports.SubscriptionService, referralSvc ports.ReferralService) *AccountHandler {
	return &AccountHandler{subscriptionSvc: subscriptionSvc, referralSvc: referralSvc}
}

// UpgradeSubscription handles POST /api/v1/subscription/upgrade.
func (h *AccountHandler) UpgradeSubscription(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.UpgradeSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	tier, valid := dto.ParseTier(req.Tier)
	if !valid {
		response.Error(c, apperror.ErrInvalidTier())
		return
	}

	account, err := h.subscriptionSvc.UpgradeSubscription(c.Request.Context(), caller, tier, req.Asset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, account)
}

// ClaimReferralBonus handles POST /api/v1/referrals/claim.
func (h *AccountHandler) ClaimReferralBonus(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	claimed, err := h.referralSvc.ClaimReferralBonus(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ClaimResponse{Claimed: claimed})
}

// ListReferrals handles GET /api/v1/referrals.
func (h *AccountHandler) ListReferrals(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	records, err := h.referralSvc.ListReferralRecords(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, records)
}
