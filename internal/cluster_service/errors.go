package cluster_service

import "errors"

var (
	ErrNotPublished     = errors.New("no naming server published")
	ErrNotStarted       = errors.New("cluster service not started")
	ErrAlreadyPublished = errors.New("naming server already published by this service")
	ErrInvalidAddresses = errors.New("naming server addresses incomplete")
)
