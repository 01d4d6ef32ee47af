package naming_service

import (
	"context"

	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

// NamingService is the client-facing interface of the naming server.
type NamingService interface {
	Lock(ctx context.Context, path dfs_path.Path, exclusive bool) error
	Unlock(ctx context.Context, path dfs_path.Path, exclusive bool) error

	IsDirectory(ctx context.Context, path dfs_path.Path) (bool, error)
	List(ctx context.Context, dir dfs_path.Path) ([]string, error)

	CreateFile(ctx context.Context, file dfs_path.Path) (bool, error)
	CreateDirectory(ctx context.Context, dir dfs_path.Path) (bool, error)
	Delete(ctx context.Context, path dfs_path.Path) (bool, error)

	// GetStorage returns the data-plane handle of one node holding file.
	GetStorage(ctx context.Context, file dfs_path.Path) (ss.Storage, error)
}

// Registration is the interface storage nodes call once at startup. It
// returns the proposed files that were rejected as duplicates.
type Registration interface {
	Register(ctx context.Context, client ss.Storage, command ss.Command, files []dfs_path.Path) ([]dfs_path.Path, error)
}
