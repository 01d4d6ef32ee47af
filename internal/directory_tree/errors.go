package directory_tree

import "errors"

var (
	ErrNotFound     = errors.New("path not found")
	ErrNotDirectory = errors.New("not a directory")
	ErrInvalidRoot  = errors.New("operation not permitted on root")
	ErrInvalidState = errors.New("lock not held in the requested mode")
)
