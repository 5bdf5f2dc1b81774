package handler

import (
	"strconv"

	"nodefoundry-ledger/internal/adapter/http/dto"
	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/pkg/apperror"
	"nodefoundry-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// UsageHandler handles usage metering endpoints.
type UsageHandler struct {
	usageSvc ports.UsageService
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(usageSvc ports.UsageService) *UsageHandler {
	return &UsageHandler{usageSvc: usageSvc}
}

// Start handles POST /api/v1/usage/start.
func (h *UsageHandler) Start(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.StartUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	session, err := h.usageSvc.StartUsage(c.Request.Context(), caller, req.InfraID, domain.PricingModel(req.PricingModel))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, session)
}

// Stop handles POST /api/v1/usage/:id/stop.
func (h *UsageHandler) Stop(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperror.Validation("invalid session id"))
		return
	}

	session, err := h.usageSvc.StopUsage(c.Request.Context(), caller, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, session)
}

// Get handles GET /api/v1/usage/:id.
func (h *UsageHandler) Get(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperror.Validation("invalid session id"))
		return
	}

	session, err := h.usageSvc.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, session)
}
