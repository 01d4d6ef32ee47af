package storage_service

import (
	"context"

	"github.com/AnishMulay/sanddfs/internal/dfs_path"
)

// CopyChunkSize is the largest read issued against a peer while copying a
// file between storage nodes.
const CopyChunkSize = 8 * 1024

// Storage is the data-plane interface clients use directly against a storage
// node.
type Storage interface {
	Size(ctx context.Context, file dfs_path.Path) (int64, error)
	Read(ctx context.Context, file dfs_path.Path, offset int64, length int) ([]byte, error)
	Write(ctx context.Context, file dfs_path.Path, offset int64, data []byte) error
}

// Command is the control-plane interface the naming server uses to create and
// delete physical files on a storage node.
type Command interface {
	Create(ctx context.Context, file dfs_path.Path) (bool, error)
	Delete(ctx context.Context, path dfs_path.Path) (bool, error)
	Copy(ctx context.Context, file dfs_path.Path, source Storage) (bool, error)
}

// StorageService is a storage node: both interfaces served from one local
// directory.
type StorageService interface {
	Storage
	Command
}
