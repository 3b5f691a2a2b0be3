package apperr

import "errors"

// ErrInvalid is returned when a local precondition fails; the backend is never called.
var ErrInvalid = errors.New("invalid input")

// ErrNotFound indicates the order vanished server-side (HTTP 404 or equivalent).
var ErrNotFound = errors.New("not found")

// ErrNetwork indicates a transient transport failure; surfaced as a failed result.
var ErrNetwork = errors.New("network unavailable")

// ErrAuth indicates an expired or rejected credential.
var ErrAuth = errors.New("authentication failed")

// ErrRealtime indicates a non-fatal push-channel failure; reported via callback, never returned to callers.
var ErrRealtime = errors.New("realtime channel error")

// Retryable reports whether the error class may be retried automatically.
// Only network-class failures qualify; not-found and validation never do.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}
