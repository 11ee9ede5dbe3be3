package domain

import "errors"

// Typed errors surfaced by the arrival core. All are recoverable and mapped
// to HTTP statuses at the transport edge; none are process-fatal.
var (
	// ErrConflict: the driver already holds a non-terminal session.
	ErrConflict = errors.New("driver already has an active arrival session")

	// ErrRateLimited: the driver reached the daily session cap.
	ErrRateLimited = errors.New("daily arrival session limit reached")

	// ErrInvalidState: the operation is not valid for the session's
	// current status, or a concurrent caller won the transition.
	ErrInvalidState = errors.New("operation not valid for current session status")

	// ErrTooFar: the reported location failed the geofence check.
	ErrTooFar = errors.New("reported location is outside the charger geofence")

	// ErrNotFound: unknown session id.
	ErrNotFound = errors.New("arrival session not found")
)
