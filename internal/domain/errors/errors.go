package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrBadRequest    = errors.New("bad request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
)

// Ledger errors. Validation rejections are final and never retried.
var (
	ErrInvalidAmount              = errors.New("amount must be greater than zero")
	ErrWalletNotFound             = errors.New("wallet not found")
	ErrInsufficientFunds          = errors.New("insufficient balance")
	ErrWalletLocked               = errors.New("wallet funds are locked")
	ErrDuplicateExternalReference = errors.New("external reference already processed")
	ErrTransferFailed             = errors.New("transfer could not be completed")
	ErrPermissionDenied           = errors.New("wallet permission denied")
	ErrWalletInactive             = errors.New("wallet is deactivated")
	ErrCurrencyMismatch           = errors.New("wallet currencies differ")
	ErrSameWallet                 = errors.New("source and destination wallets are the same")
	ErrInvalidPin                 = errors.New("invalid transaction pin")
	ErrWalletNotEmpty             = errors.New("wallet balance must be zero")
	ErrTransactionNotFound        = errors.New("transaction not found")
	ErrGatewayUnavailable         = errors.New("payment gateway unavailable")
	ErrInvalidSignature           = errors.New("invalid webhook signature")
)

// Machine-readable codes returned to clients
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidAmount      = "INVALID_AMOUNT"
	CodeWalletNotFound     = "WALLET_NOT_FOUND"
	CodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	CodeWalletLocked       = "WALLET_LOCKED"
	CodeTransferFailed     = "TRANSFER_FAILED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeWalletInactive     = "WALLET_INACTIVE"
	CodeCurrencyMismatch   = "CURRENCY_MISMATCH"
	CodeInvalidPin         = "INVALID_PIN"
	CodeWalletNotEmpty     = "WALLET_NOT_EMPTY"
	CodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrAlreadyExists)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// ledgerErrors maps each ledger sentinel to the response a client can act on.
var ledgerErrors = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{ErrInvalidAmount, http.StatusBadRequest, CodeInvalidAmount, "amount must be greater than zero"},
	{ErrWalletNotFound, http.StatusNotFound, CodeWalletNotFound, "wallet not found"},
	{ErrInsufficientFunds, http.StatusUnprocessableEntity, CodeInsufficientFunds, "insufficient balance to cover amount and fee"},
	{ErrWalletLocked, http.StatusLocked, CodeWalletLocked, "wallet funds are locked by an administrator"},
	{ErrPermissionDenied, http.StatusForbidden, CodePermissionDenied, "wallet permissions do not allow this movement"},
	{ErrWalletInactive, http.StatusConflict, CodeWalletInactive, "wallet is deactivated"},
	{ErrCurrencyMismatch, http.StatusBadRequest, CodeCurrencyMismatch, "source and destination wallets use different currencies"},
	{ErrSameWallet, http.StatusBadRequest, CodeInvalidInput, "source and destination wallets must differ"},
	{ErrInvalidPin, http.StatusForbidden, CodeInvalidPin, "transaction pin is missing or incorrect"},
	{ErrWalletNotEmpty, http.StatusConflict, CodeWalletNotEmpty, "wallet balance must be zero before deactivation"},
	{ErrTransactionNotFound, http.StatusNotFound, CodeNotFound, "transaction not found"},
	{ErrGatewayUnavailable, http.StatusBadGateway, CodeGatewayUnavailable, "payment gateway could not be reached"},
	{ErrInvalidSignature, http.StatusUnauthorized, CodeUnauthorized, "invalid webhook signature"},
	{ErrTransferFailed, http.StatusServiceUnavailable, CodeTransferFailed, "transfer could not be completed, no funds were moved"},
}

// FromLedgerError converts a ledger sentinel (possibly wrapped) into an AppError.
// It returns nil when err is not a ledger error.
func FromLedgerError(err error) *AppError {
	for _, le := range ledgerErrors {
		if errors.Is(err, le.err) {
			return NewAppError(le.status, le.code, le.message, err)
		}
	}
	return nil
}

// IsValidationError reports whether err is a correct rejection rather than a transient fault
func IsValidationError(err error) bool {
	for _, e := range []error{
		ErrInvalidAmount, ErrWalletNotFound, ErrInsufficientFunds, ErrWalletLocked,
		ErrPermissionDenied, ErrWalletInactive, ErrCurrencyMismatch, ErrSameWallet,
		ErrInvalidPin, ErrInvalidInput, ErrForbidden, ErrNotFound, ErrWalletNotEmpty,
		ErrTransactionNotFound,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError
}
