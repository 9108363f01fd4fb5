package services

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorUnauthorized ErrorCode = "unauthorized"
	ErrorBadGateway   ErrorCode = "bad_gateway"
	ErrorGone         ErrorCode = "gone"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewBadGatewayError(msg string, err error) error {
	return &ServiceError{Code: ErrorBadGateway, Message: msg, Err: err}
}

func NewGoneError(msg string) error { return &ServiceError{Code: ErrorGone, Message: msg} }

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var (
	// ErrIncomplete is matched by IncompleteError via errors.Is.
	ErrIncomplete = errors.New("all questions are required")
	// ErrNoData marks the explicit empty state: nothing to aggregate.
	ErrNoData = errors.New("no submissions match the current filters")
	// ErrAccessDenied is returned when public results are not enabled for a teacher.
	ErrAccessDenied = errors.New("public results are not enabled for this teacher")
)

// IncompleteError is returned when a submission is attempted before every
// question has a rating.
type IncompleteError struct {
	Answered int
	Total    int
	Missing  []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: answered %d of %d (missing %s)", ErrIncomplete, e.Answered, e.Total, strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Is(target error) bool { return target == ErrIncomplete }

// accessDenied is the forbidden error for a teacher whose public link is off.
func accessDenied() error {
	return &ServiceError{Code: ErrorForbidden, Message: ErrAccessDenied.Error(), Err: ErrAccessDenied}
}
