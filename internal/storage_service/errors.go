package storage_service

import "errors"

var (
	ErrNotFound     = errors.New("file not found or is a directory")
	ErrOutOfBounds  = errors.New("offset or length out of bounds")
	ErrCreateFailed = errors.New("failed to create file")
	ErrReadFailed   = errors.New("failed to read file")
	ErrWriteFailed  = errors.New("failed to write file")
)
