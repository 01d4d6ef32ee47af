package naming_service

import "errors"

var (
	ErrNotFound        = errors.New("path not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIllegalState    = errors.New("illegal state")
	ErrInvalidState    = errors.New("lock not held in the requested mode")

	// ErrRemoteFailure wraps a failed call to a storage node.
	ErrRemoteFailure = errors.New("storage node call failed")
)
