package config

import "errors"

var (
	ErrReadFailed         = errors.New("failed to read config file")
	ErrParseFailed        = errors.New("failed to parse config file")
	ErrWriteDefaultFailed = errors.New("failed to write default config")
	ErrInvalidConfig      = errors.New("invalid configuration")
)
