package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, secret sources and the
// registry transport return these (optionally wrapped) so services can
// translate them into domain errors:
//   - ErrNotFound: tenant or DOI does not exist
//   - ErrInvalidState: DOI is in the wrong state for the requested operation
//   - ErrUnavailable: backing service temporarily unreachable
//   - ErrMalformed: a backing payload could not be decoded
//
// For classification of failures surfaced to callers use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrMalformed    = errors.New("malformed")
)
