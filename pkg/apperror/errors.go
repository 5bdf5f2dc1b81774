package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger (LED) ----

func ErrInvalidAmount() *AppError {
	return New("LED_001", "Amount must be strictly positive", http.StatusBadRequest)
}

func ErrInsufficientBalance() *AppError {
	return New("LED_002", "Insufficient balance", http.StatusPaymentRequired)
}

func ErrAssetNotWhitelisted(asset string) *AppError {
	return New("LED_003", fmt.Sprintf("Asset %s is not whitelisted", asset), http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAccountDeactivated() *AppError {
	return New("LED_005", "Account is deactivated", http.StatusForbidden)
}

// ---- Usage sessions (USE) ----

func ErrSessionNotActive() *AppError {
	return New("USE_001", "Usage session is not active", http.StatusConflict)
}

func ErrSessionAlreadyActive() *AppError {
	return New("USE_002", "An active usage session already exists for this infra", http.StatusConflict)
}

func ErrInfraNotActive(infraID string) *AppError {
	return New("USE_003", fmt.Sprintf("Infra %s is not active", infraID), http.StatusUnprocessableEntity)
}

func ErrAccountNotVerified() *AppError {
	return New("USE_004", "Account is not verified", http.StatusForbidden)
}

// ---- Orders & escrow (ORD) ----

func ErrOrderStateMismatch(state string) *AppError {
	return New("ORD_001", fmt.Sprintf("Operation not allowed in order state %s", state), http.StatusConflict)
}

// ---- Referrals (REF) ----

func ErrNothingToClaim() *AppError {
	return New("REF_001", "No pending referral commission to claim", http.StatusNotFound)
}

// ---- Subscriptions (SUB) ----

func ErrInvalidTier() *AppError {
	return New("SUB_001", "Invalid subscription tier", http.StatusBadRequest)
}

// ---- Authentication & authorization (AUTH) ----

func ErrUnauthorized() *AppError {
	return New("AUTH_001", "Caller is not authorized for this operation", http.StatusForbidden)
}

func ErrInvalidCredentials() *AppError {
	return New("AUTH_002", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_003", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_004", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrDirectoryUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Infra directory unavailable", http.StatusBadGateway, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
