package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	AccountNotFound    ErrorCode = "account_not_found"
	InvalidAccountID   ErrorCode = "invalid_account_id"
	MaxAccountsReached ErrorCode = "max_accounts_reached"
	InvalidAccountType ErrorCode = "invalid_account_type"
	DuplicateAccount   ErrorCode = "duplicate_account"
	InvalidInput       ErrorCode = "invalid_input"
	InternalError      ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// HTTPStatus maps an error code to the response status the API surface uses.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case AccountNotFound:
		return http.StatusNotFound
	case InvalidAccountID, MaxAccountsReached, InvalidAccountType, DuplicateAccount, InvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrDuplicateAccount       = NewAppError(DuplicateAccount, "account already exists")
	ErrMaxAccountsReached     = NewAppError(MaxAccountsReached, "a customer can have up to 10 accounts")
	ErrInvalidAccountType     = NewAppError(InvalidAccountType, "invalid account type")
	ErrSalaryAccountExists    = NewAppError(InvalidAccountType, "only one salary account is allowed per customer")
	ErrCannotBeginTransaction = NewAppError(InternalError, "cannot begin transaction on non-database executor")
)
