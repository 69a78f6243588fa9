// Package services holds the business logic of the page restoration backend:
// the quota ledger, the artifact store, pricing and the job orchestrator.
// This file centralizes the service-level error values so that they can be
// returned consistently by service methods and checked by callers with
// errors.Is.
//
// Translation into user-facing messages or HTTP status codes is done in the
// handler layer.
package services

import "errors"

var (
	// ErrNotFound indicates that the artifact or page does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller does not own the artifact.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidRequest covers malformed input: out-of-range or duplicated
	// page indices, unknown quality tiers, undecodable uploads.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnsupportedContentType is returned for uploads that are neither a
	// PDF nor a supported image.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrPayloadTooLarge is returned when an upload exceeds the size limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrInsufficientCredits means the free allowance plus the credit balance
	// cannot cover the requested pages.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrNotReady is returned when a result is requested for a page that has
	// not completed.
	ErrNotReady = errors.New("result not ready")

	// ErrPageConflict means one of the requested pages is already being
	// processed, or the artifact is busy.
	ErrPageConflict = errors.New("page is already being processed")

	// ErrShuttingDown is returned for submissions after Shutdown started.
	ErrShuttingDown = errors.New("service is shutting down")

	// ErrUserNotFound is returned by the ledger for unknown user ids.
	ErrUserNotFound = errors.New("user not found")

	// errVersionConflict signals a lost compare-and-set on the user row.
	errVersionConflict = errors.New("balance changed concurrently")
)
