// Package services defines the business logic for projects, test sessions,
// reports, and exports. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import (
	"errors"
	"fmt"
)

// Project-related errors.
var (
	// ErrProjectNotFound indicates that the requested project does not exist
	// or is not accessible to the current user.
	ErrProjectNotFound = errors.New("project not found")

	// ErrProjectArchived is returned when an operation requires an active
	// project but the target has been archived.
	ErrProjectArchived = errors.New("project is archived")

	// ErrInvalidURL is returned when the submitted target URL is empty,
	// malformed, or uses a scheme other than http/https.
	ErrInvalidURL = errors.New("target URL is invalid")

	// ErrQuotaExceeded is returned when the user has no analysis quota left,
	// neither monthly allowance nor pack credits.
	ErrQuotaExceeded = errors.New("analysis quota exhausted")
)

// ErrInvalidMarker is returned when a submitted marker carries an unknown
// layer or a payload that does not match its layer.
var ErrInvalidMarker = errors.New("marker layer and payload do not match")

// ErrTooFewMarkers is returned when a session submission carries fewer
// markers than the configured minimum.
type ErrTooFewMarkers struct {
	Got int
	Min int
}

func (e ErrTooFewMarkers) Error() string {
	return fmt.Sprintf("session needs at least %d markers, got %d", e.Min, e.Got)
}
