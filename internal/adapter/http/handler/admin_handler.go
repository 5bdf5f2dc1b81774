package handler

import (
	"nodefoundry-ledger/internal/adapter/http/dto"
	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/pkg/apperror"
	"nodefoundry-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles admin-only platform configuration endpoints. The
// admin capability check itself lives in the service layer.
type AdminHandler struct {
	adminSvc ports.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminSvc ports.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// WhitelistToken handles POST /api/v1/admin/tokens/whitelist.
func (h *AdminHandler) WhitelistToken(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WhitelistTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	if err := h.adminSvc.WhitelistToken(c.Request.Context(), caller, req.Asset); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"asset": req.Asset, "whitelisted": true})
}

// RemoveTokenWhitelist handles DELETE /api/v1/admin/tokens/whitelist/:asset.
func (h *AdminHandler) RemoveTokenWhitelist(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	asset := c.Param("asset")
	if err := h.adminSvc.RemoveTokenWhitelist(c.Request.Context(), caller, asset); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"asset": asset, "whitelisted": false})
}

// SetInfraPricing handles POST /api/v1/admin/pricing/infra.
func (h *AdminHandler) SetInfraPricing(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.InfraPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	pricing := &domain.InfraPricing{
		InfraID: req.InfraID,
		Model:   domain.PricingModel(req.Model),
		Rate:    req.Rate,
		Asset:   req.Asset,
	}
	if err := h.adminSvc.SetInfraPricing(c.Request.Context(), caller, pricing); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, pricing)
}

// SetTierPrice handles POST /api/v1/admin/pricing/tier.
func (h *AdminHandler) SetTierPrice(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TierPriceRequest
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

	if err := h.adminSvc.SetTierPrice(c.Request.Context(), caller, tier, req.Asset, req.Price); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"tier": req.Tier, "asset": req.Asset, "price": req.Price})
}

// VerifyAccount handles POST /api/v1/admin/accounts/:address/verify.
func (h *AdminHandler) VerifyAccount(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	address := c.Param("address")
	if err := h.adminSvc.VerifyAccount(c.Request.Context(), caller, address); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"address": address, "verified": true})
}

// DeactivateAccount handles POST /api/v1/admin/accounts/:address/deactivate.
func (h *AdminHandler) DeactivateAccount(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	address := c.Param("address")
	if err := h.adminSvc.DeactivateAccount(c.Request.Context(), caller, address); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"address": address, "active": false})
}
