package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources. A partition
	// reporting it for an entity is a legitimate terminal state, not a
	// failure.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict means an optimistic-lock precondition failed; the
	// caller must restart its read-decide-write cycle.
	ErrVersionConflict = errors.New("version conflict")
	// ErrBlockchainNotSupported means a request named a blockchain no
	// service is registered for. This is caller misuse and is surfaced.
	ErrBlockchainNotSupported = errors.New("blockchain not supported")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
