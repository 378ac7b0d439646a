package application

import (
	"errors"
	"fmt"
	"net/http"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeVersionConflict = "VERSION_CONFLICT"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTimeout         = "TIMEOUT"
)

// ErrVersionConflict marks a lost optimistic-concurrency race on a payment
// mutation. It is retryable by the caller; the connector does not retry on
// its own.
var ErrVersionConflict = errors.New("resource version conflict")

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewNotFoundError(resource, id string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s %s not found", resource, id),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewVersionConflictError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeVersionConflict,
		Message:    "Resource was modified concurrently, please retry",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func NewUnauthorizedError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeUnauthorized,
		Message:    "Missing or invalid credentials",
		HTTPStatus: http.StatusUnauthorized,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// ToHTTPStatus maps any error to the status code the operations surface
// should answer with. The session-scoped balance/redeem endpoints never use
// this; they answer 200 with structured failure payloads.
func ToHTTPStatus(err error) int {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}
	if errors.Is(err, ErrVersionConflict) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ToErrorCode extracts a stable machine code from any error.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}
	if errors.Is(err, ErrVersionConflict) {
		return ErrCodeVersionConflict
	}
	return ErrCodeInternal
}
