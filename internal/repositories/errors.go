package repositories

import "errors"

// Error taxonomy for the ledger store. Callers branch on these with
// errors.Is; anything else from the store wraps ErrStoreUnavailable.
var (
	// ErrNotFound means no matching vehicle or open visit exists.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a concurrent writer got there first: either an
	// open visit already exists for the number, or the caller's view of
	// the visit is stale. The vehicle-check command retries once.
	ErrConflict = errors.New("conflict")

	// ErrStoreUnavailable wraps underlying persistence failures. Fatal
	// for the request, never silently swallowed.
	ErrStoreUnavailable = errors.New("store unavailable")
)
