package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound               = errors.New("loan not found")
	ErrPeriodNotFound             = errors.New("schedule period not found")
	ErrInvalidParameters          = errors.New("invalid loan parameters")
	ErrInvalidAmount              = errors.New("invalid payment amount")
	ErrAlreadySettled             = errors.New("schedule period is already settled")
	ErrScheduleExistsWithPayments = errors.New("cannot regenerate a schedule with recorded payments")
	ErrConsistencyViolation       = errors.New("schedule period is inconsistent")
	ErrConcurrentModification     = errors.New("schedule was modified concurrently")
	ErrLockNotAcquired            = errors.New("loan is locked by another operation")
	ErrUnauthorized               = errors.New("unauthorized")
	ErrLoanHasPayments            = errors.New("loan has recorded payments")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound               = "LOAN_NOT_FOUND"
	ErrCodePeriodNotFound             = "PERIOD_NOT_FOUND"
	ErrCodeInvalidParameters          = "INVALID_PARAMETERS"
	ErrCodeInvalidAmount              = "INVALID_AMOUNT"
	ErrCodeAlreadySettled             = "ALREADY_SETTLED"
	ErrCodeScheduleExistsWithPayments = "SCHEDULE_EXISTS_WITH_PAYMENTS"
	ErrCodeConsistencyViolation       = "CONSISTENCY_VIOLATION"
	ErrCodeConcurrentModification     = "CONCURRENT_MODIFICATION"
	ErrCodeLockNotAcquired            = "LOCK_NOT_ACQUIRED"
	ErrCodeUnauthorized               = "UNAUTHORIZED"
	ErrCodeLoanHasPayments            = "LOAN_HAS_PAYMENTS"
	ErrCodeValidation                 = "VALIDATION_FAILED"
	ErrCodeDatabaseError              = "DATABASE_ERROR"
	ErrCodeCacheError                 = "CACHE_ERROR"
)

// CodeOf returns the business code carried by err, or "" when err is not a BusinessError.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapPeriodNotFound(loanID string, period int) *BusinessError {
	return NewBusinessError(
		ErrCodePeriodNotFound,
		fmt.Sprintf("Loan %s has no period %d", loanID, period),
		ErrPeriodNotFound,
	)
}

func WrapInvalidParameters(message string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidParameters, message, ErrInvalidParameters)
}

func WrapInvalidAmount(amount, outstanding string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Payment amount %s must be greater than 0 and at most the outstanding %s", amount, outstanding),
		ErrInvalidAmount,
	)
}

func WrapAlreadySettled(period int) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadySettled,
		fmt.Sprintf("Period %d is already paid", period),
		ErrAlreadySettled,
	)
}

func WrapScheduleExistsWithPayments(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeScheduleExistsWithPayments,
		fmt.Sprintf("Loan %s already has paid periods; the schedule cannot be regenerated", loanID),
		ErrScheduleExistsWithPayments,
	)
}

func WrapConsistencyViolation(period int, message string) *BusinessError {
	return NewBusinessError(
		ErrCodeConsistencyViolation,
		fmt.Sprintf("Period %d: %s", period, message),
		ErrConsistencyViolation,
	)
}

func WrapConcurrentModification(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrentModification,
		fmt.Sprintf("Schedule of loan %s changed while the operation was running; retry", loanID),
		ErrConcurrentModification,
	)
}

func WrapLockNotAcquired(loanID string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeLockNotAcquired,
		fmt.Sprintf("Loan %s is busy with another operation", loanID),
		errors.Join(ErrLockNotAcquired, err),
	)
}

func WrapLoanHasPayments(loanID string, count int) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanHasPayments,
		fmt.Sprintf("Loan %s has %d recorded payments and cannot be deleted", loanID, count),
		ErrLoanHasPayments,
	)
}

func WrapUnauthorized(message string) *BusinessError {
	return NewBusinessError(ErrCodeUnauthorized, message, ErrUnauthorized)
}

func WrapValidation(err error) *BusinessError {
	return NewBusinessError(ErrCodeValidation, "request validation failed", err)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
