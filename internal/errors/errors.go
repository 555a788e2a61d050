package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	MemberNotFound   ErrorCode = "member_not_found"
	AccountNotFound  ErrorCode = "account_not_found"
	KeyPairNotFound  ErrorCode = "key_pair_not_found"
	DuplicateAccount ErrorCode = "duplicate_account"
	PasswordMismatch ErrorCode = "password_mismatch"
	DecryptionFailed ErrorCode = "decryption_failed"
	SendFailure      ErrorCode = "send_failure"
	InvalidInput     ErrorCode = "invalid_input"
	Unauthorized     ErrorCode = "unauthorized"
	InternalError    ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on code so that a predefined error still matches after WithDetails
// has been applied to a copy of it.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
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

// WithDetails returns a copy carrying details, leaving shared predefined errors untouched.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case MemberNotFound, AccountNotFound, KeyPairNotFound:
		return http.StatusNotFound
	case DuplicateAccount:
		return http.StatusConflict
	case PasswordMismatch, Unauthorized:
		return http.StatusUnauthorized
	case InvalidInput:
		return http.StatusBadRequest
	case SendFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsAppError unwraps err into an AppError, falling back to internal_error.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(InternalError, "an unexpected error occurred")
}

// Predefined errors for common cases
var (
	ErrMemberNotFound   = NewAppError(MemberNotFound, "member not found")
	ErrAccountNotFound  = NewAppError(AccountNotFound, "account not found")
	ErrKeyPairNotFound  = NewAppError(KeyPairNotFound, "key pair not found")
	ErrDuplicateAccount = NewAppError(DuplicateAccount, "member already has an account")
	ErrPasswordMismatch = NewAppError(PasswordMismatch, "account password does not match")
	ErrDecryptionFailed = NewAppError(DecryptionFailed, "failed to decrypt account number")
	ErrSendFailure      = NewAppError(SendFailure, "failed to send push notification")
	ErrUnauthorized     = NewAppError(Unauthorized, "invalid or missing credentials")
	ErrCannotBeginTx    = NewAppError(InternalError, "store is already inside a transaction")
)
