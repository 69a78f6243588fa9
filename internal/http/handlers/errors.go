// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Generic codes mirror HTTP semantics, domain codes name
// the business rule that refused the request.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "insufficient_credits",
//	  "message": "not enough free pages or credits for 12 pages"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/tbourn/go-page-restore/internal/payments"
	"github.com/tbourn/go-page-restore/internal/services"
)

const (
	ErrCodeBadRequest       = "invalid_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeTooLarge         = "payload_too_large"
	ErrCodeUnavailable      = "service_unavailable"

	// Domain-specific:
	ErrCodeUnsupportedMedia    = "unsupported_media_type"
	ErrCodeInsufficientCredits = "insufficient_credits"
	ErrCodeNotReady            = "not_ready"
	ErrCodeInvalidSignature    = "invalid_signature"
)

// errorStatus maps a service or payments error to its HTTP status and code.
// Unknown errors are internal.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden
	case errors.Is(err, services.ErrInvalidRequest), errors.Is(err, payments.ErrMalformedEvent):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, services.ErrUnsupportedContentType):
		return http.StatusUnsupportedMediaType, ErrCodeUnsupportedMedia
	case errors.Is(err, services.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, ErrCodeTooLarge
	case errors.Is(err, services.ErrInsufficientCredits):
		return http.StatusPaymentRequired, ErrCodeInsufficientCredits
	case errors.Is(err, services.ErrNotReady):
		return http.StatusConflict, ErrCodeNotReady
	case errors.Is(err, services.ErrPageConflict):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, services.ErrShuttingDown):
		return http.StatusServiceUnavailable, ErrCodeUnavailable
	case errors.Is(err, payments.ErrInvalidSignature):
		return http.StatusUnauthorized, ErrCodeInvalidSignature
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
