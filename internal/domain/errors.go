package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist
	// or is not visible to the caller. Adapters map it to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidProgress rejects progress values outside [0,100].
	// Out-of-range values are rejected rather than clamped so caller bugs surface.
	ErrInvalidProgress = errors.New("progress must be an integer between 0 and 100")
	// ErrInvalidRequest covers malformed requests: missing required fields on
	// create, or a purge request that supplies neither or both of ids/filters.
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	// ErrStorageConflict signals an atomic update that lost its race after
	// exhausting the bounded retry budget.
	ErrStorageConflict = errors.New("storage conflict")
	// ErrStorageUnavailable is surfaced immediately on persistence failure;
	// the service never fabricates a result over a broken store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
