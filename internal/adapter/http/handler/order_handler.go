package handler

import (
	"strconv"

	"nodefoundry-ledger/internal/adapter/http/dto"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/pkg/apperror"
	"nodefoundry-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// OrderHandler handles order escrow endpoints.
type OrderHandler struct {
	escrowSvc ports.EscrowService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(escrowSvc ports.EscrowService) *OrderHandler {
	return &OrderHandler{escrowSvc: escrowSvc}
}

// Create handles POST /api/v1/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	order, err := h.escrowSvc.CreateOrder(c.Request.Context(), caller, ports.CreateOrderRequest{
		ProviderInfraID: req.ProviderInfraID,
		Amount:          req.Amount,
		Asset:           req.Asset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, order)
}

// orderMutation is the shared shape of the five state transition handlers.
type orderMutation func(c *gin.Context, caller string, orderID int64)

func (h *OrderHandler) mutate(c *gin.Context, fn orderMutation) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperror.Validation("invalid order id"))
		return
	}

	fn(c, caller, orderID)
}

// Fund handles POST /api/v1/orders/:id/fund.
func (h *OrderHandler) Fund(c *gin.Context) {
	h.mutate(c, func(c *gin.Context, caller string, orderID int64) {
		order, err := h.escrowSvc.FundOrder(c.Request.Context(), caller, orderID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, order)
	})
}

// Release handles POST /api/v1/orders/:id/release.
func (h *OrderHandler) Release(c *gin.Context) {
	h.mutate(c, func(c *gin.Context, caller string, orderID int64) {
		order, err := h.escrowSvc.ReleaseOrder(c.Request.Context(), caller, orderID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, order)
	})
}

// Refund handles POST /api/v1/orders/:id/refund.
func (h *OrderHandler) Refund(c *gin.Context) {
	h.mutate(c, func(c *gin.Context, caller string, orderID int64) {
		order, err := h.escrowSvc.RefundOrder(c.Request.Context(), caller, orderID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, order)
	})
}

// Dispute handles POST /api/v1/orders/:id/dispute.
func (h *OrderHandler) Dispute(c *gin.Context) {
	h.mutate(c, func(c *gin.Context, caller string, orderID int64) {
		order, err := h.escrowSvc.DisputeOrder(c.Request.Context(), caller, orderID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, order)
	})
}

// Cancel handles POST /api/v1/orders/:id/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.mutate(c, func(c *gin.Context, caller string, orderID int64) {
		order, err := h.escrowSvc.CancelOrder(c.Request.Context(), caller, orderID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, order)
	})
}

// Get handles GET /api/v1/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperror.Validation("invalid order id"))
		return
	}

	order, err := h.escrowSvc.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, order)
}

// List handles GET /api/v1/orders — the caller's orders, newest first.
func (h *OrderHandler) List(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	orders, err := h.escrowSvc.ListOrders(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, orders)
}
