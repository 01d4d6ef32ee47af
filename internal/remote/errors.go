package remote

import "errors"

var (
	// ErrRemoteInternal is returned for remote failures that have no more
	// specific meaning on this side of the wire.
	ErrRemoteInternal     = errors.New("remote internal error")
	ErrUnexpectedResponse = errors.New("unexpected response body")
	ErrNoAddress          = errors.New("storage handle has no network address")
)
