package models

import "errors"

// Sentinel errors surfaced to the HTTP boundary. Anything else is treated
// as a server error: the original cause is logged, clients get a generic
// message.
var (
	// ErrUnitUnavailable means the unit was not in the available state at
	// transaction time. Distinct so callers can offer "pick another unit".
	ErrUnitUnavailable = errors.New("unit is not available for booking")

	// ErrNotFound means a lookup matched no record. Distinct from an
	// empty-but-successful list result.
	ErrNotFound = errors.New("record not found")
)

// ValidationError reports a malformed or incomplete request. It is always
// raised before any write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
