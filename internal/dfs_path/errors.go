package dfs_path

import "errors"

var (
	ErrInvalidPath      = errors.New("malformed path")
	ErrInvalidComponent = errors.New("invalid path component")
	ErrRootHasNoParent  = errors.New("root directory has no parent")
	ErrNotDirectory     = errors.New("not a directory")
)
