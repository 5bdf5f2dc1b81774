package handler

import (
	"nodefoundry-ledger/internal/adapter/http/dto"
	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/pkg/apperror"
	"nodefoundry-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet ledger endpoints.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService) *WalletHandler {
	return &WalletHandler{ledgerSvc: ledgerSvc}
}

// Deposit handles POST /api/v1/wallet/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.MoveFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	txn, err := h.ledgerSvc.Deposit(c.Request.Context(), caller, req.Asset, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// Withdraw handles POST /api/v1/wallet/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.MoveFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	txn, err := h.ledgerSvc.Withdraw(c.Request.Context(), caller, req.Asset, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// ListBalances handles GET /api/v1/wallet/balances.
func (h *WalletHandler) ListBalances(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balances, err := h.ledgerSvc.ListBalances(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	if balances == nil {
		balances = []domain.AssetBalance{}
	}

	response.OK(c, dto.BalanceListResponse{Balances: balances})
}

// GetBalance handles GET /api/v1/wallet/balances/:asset. An asset the account
// never held reports a zero balance rather than 404.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	asset := c.Param("asset")
	amount, err := h.ledgerSvc.GetBalance(c.Request.Context(), caller, asset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, domain.AssetBalance{Asset: asset, Amount: amount})
}

// toTransactionResponse converts domain.Transaction to DTO.
func toTransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:        tx.ID.String(),
		Kind:      string(tx.Kind),
		Amount:    tx.Amount,
		Asset:     tx.Asset,
		RelatedID: tx.RelatedID,
		Status:    string(tx.Status),
		CreatedAt: tx.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
