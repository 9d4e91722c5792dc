package booking

import (
	"context"
	"errors"
	"fmt"

	schedulerRepo "medibook/database/repository/scheduler"
)

// ErrorCode classifies scheduling failures for callers and the HTTP layer.
type ErrorCode string

const (
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeUnauthenticated     ErrorCode = "UNAUTHENTICATED"
	CodePermissionDenied    ErrorCode = "PERMISSION_DENIED"
	CodeInvalidState        ErrorCode = "INVALID_STATE"
	CodeInvalidArgument     ErrorCode = "INVALID_ARGUMENT"
	CodeTransactionConflict ErrorCode = "TRANSACTION_CONFLICT"
	CodeInternal            ErrorCode = "INTERNAL"
)

// SchedulingError is returned by every coordinator operation.
type SchedulingError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *SchedulingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SchedulingError) Unwrap() error {
	return e.Err
}

// Is matches any SchedulingError with the same code, so errors.Is(err, ErrNotFound) works.
func (e *SchedulingError) Is(target error) bool {
	t, ok := target.(*SchedulingError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrNotFound            = &SchedulingError{Code: CodeNotFound}
	ErrUnauthenticated     = &SchedulingError{Code: CodeUnauthenticated}
	ErrPermissionDenied    = &SchedulingError{Code: CodePermissionDenied}
	ErrInvalidState        = &SchedulingError{Code: CodeInvalidState}
	ErrInvalidArgument     = &SchedulingError{Code: CodeInvalidArgument}
	ErrTransactionConflict = &SchedulingError{Code: CodeTransactionConflict}
	ErrInternal            = &SchedulingError{Code: CodeInternal}
)

func newError(code ErrorCode, format string, args ...interface{}) *SchedulingError {
	return &SchedulingError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code carried by err, or INTERNAL for foreign errors.
func CodeOf(err error) ErrorCode {
	var se *SchedulingError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}

// translate maps store and context errors onto SchedulingError at the service boundary.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var se *SchedulingError
	switch {
	case errors.Is(err, schedulerRepo.ErrTransactionConflict):
		return &SchedulingError{Code: CodeTransactionConflict, Message: "too much contention, please retry", Err: err}
	case errors.As(err, &se):
		return se
	case errors.Is(err, schedulerRepo.ErrNotFound):
		return &SchedulingError{Code: CodeNotFound, Message: "resource not found", Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &SchedulingError{Code: CodeInternal, Message: "request cancelled", Err: err}
	default:
		return &SchedulingError{Code: CodeInternal, Message: "internal error", Err: err}
	}
}

// notFoundAs rewrites a store ErrNotFound with a specific message.
func notFoundAs(err error, format string, args ...interface{}) error {
	if errors.Is(err, schedulerRepo.ErrNotFound) {
		return &SchedulingError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...), Err: err}
	}
	return err
}
