package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/nearbyapp/nearby-server/internal/errors"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Message string     `json:"error" doc:"Human-readable error message"`
	Code    string     `json:"code" doc:"Machine-readable error code"`
	Details any        `json:"details,omitempty" doc:"Additional error details"`
	Meta    *ErrorMeta `json:"meta,omitempty" doc:"Request context"`
}

// ErrorMeta carries request-scoped context on error responses.
type ErrorMeta struct {
	RequestID string `json:"requestId,omitempty"`
	Feed      string `json:"feed,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewErrorWithContext = func(ctx huma.Context, status int, message string, errs ...error) huma.StatusError {
		apiErr := newAPIError(status, message, errs...)
		if ctx != nil {
			if id := RequestIDFrom(ctx.Context()); id != "" {
				apiErr.Meta = &ErrorMeta{RequestID: id}
			}
		}
		return apiErr
	}
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		return newAPIError(status, message, errs...)
	}
}

func newAPIError(status int, message string, errs ...error) *APIError {
	// Domain errors own their status and code.
	for _, err := range errs {
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return &APIError{
				status:  domainErr.HTTPStatus(),
				Code:    string(domainErr.Code),
				Message: domainErr.Message,
				Details: domainErr.Details,
			}
		}
	}

	return &APIError{
		status:  status,
		Code:    statusToCode(status),
		Message: message,
	}
}

// statusToCode maps plain HTTP statuses onto our error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	default:
		return string(domainerrors.CodeInternal)
	}
}
