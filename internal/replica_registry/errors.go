package replica_registry

import "errors"

var (
	ErrEndpointAlreadyRegistered = errors.New("endpoint already registered")
	ErrEndpointNotRegistered     = errors.New("endpoint not registered")
	ErrInvalidEndpoint           = errors.New("invalid endpoint")
	ErrNoReplicas                = errors.New("no replicas for file")
)
