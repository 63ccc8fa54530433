package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// so services can translate them into coded domain errors:
//   - ErrNotFound: row does not exist
//   - ErrConflict: a unique constraint rejected the write
//   - ErrInvalidReference: a foreign key points at nothing
//   - ErrExpired: a token or reset code is past its expiry
//   - ErrUnavailable: backing service temporarily unreachable
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidReference = errors.New("invalid reference")
	ErrExpired          = errors.New("expired")
	ErrUnavailable      = errors.New("unavailable")
)
