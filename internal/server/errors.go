package server

import "errors"

var (
	// Server lifecycle errors
	ErrServerStartFailed = errors.New("failed to start server")
	ErrServerStopFailed  = errors.New("failed to stop server")

	// Message handling errors
	ErrInvalidPayloadType = errors.New("invalid payload type for message")

	// Registration errors
	ErrRegistrationFailed = errors.New("failed to register with naming server")
)
