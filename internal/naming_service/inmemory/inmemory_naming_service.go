package inmemory

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	dt "github.com/AnishMulay/sanddfs/internal/directory_tree"
	"github.com/AnishMulay/sanddfs/internal/log_service"
	ns "github.com/AnishMulay/sanddfs/internal/naming_service"
	rr "github.com/AnishMulay/sanddfs/internal/replica_registry"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

// InMemoryNamingService keeps the namespace in memory. Nothing survives a
// restart; storage nodes re-register their files when they come back.
type InMemoryNamingService struct {
	tree     *dt.Tree
	locks    *dt.LockCoordinator
	registry rr.ReplicaRegistry
	selector ns.Selector
	ls       log_service.LogService
}

func NewInMemoryNamingService(registry rr.ReplicaRegistry, selector ns.Selector, ls log_service.LogService) *InMemoryNamingService {
	if selector == nil {
		selector = ns.RandomSelector
	}
	tree := dt.NewTree()
	return &InMemoryNamingService{
		tree:     tree,
		locks:    dt.NewLockCoordinator(tree),
		registry: registry,
		selector: selector,
		ls:       ls,
	}
}

// treeError translates directory tree errors into naming service errors.
// Anything else, such as a failed commit or cleanup, is returned as is.
func treeError(path dfs_path.Path, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dt.ErrNotFound):
		return fmt.Errorf("%s: %w", path, ns.ErrNotFound)
	case errors.Is(err, dt.ErrNotDirectory):
		return fmt.Errorf("%s is a file: %w", path, ns.ErrInvalidArgument)
	case errors.Is(err, dt.ErrInvalidRoot):
		return fmt.Errorf("root: %w", ns.ErrInvalidArgument)
	case errors.Is(err, dt.ErrInvalidState):
		return fmt.Errorf("%s: %w", path, ns.ErrInvalidState)
	default:
		return err
	}
}

func (s *InMemoryNamingService) Lock(ctx context.Context, path dfs_path.Path, exclusive bool) error {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Lock requested",
		Metadata: map[string]any{"path": path.String(), "exclusive": exclusive},
	})

	if err := s.locks.Lock(path, exclusive); err != nil {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Lock failed",
			Metadata: map[string]any{"path": path.String(), "error": err.Error()},
		})
		return treeError(path, err)
	}
	return nil
}

func (s *InMemoryNamingService) Unlock(ctx context.Context, path dfs_path.Path, exclusive bool) error {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Unlock requested",
		Metadata: map[string]any{"path": path.String(), "exclusive": exclusive},
	})

	if err := s.locks.Unlock(path, exclusive); err != nil {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Unlock failed",
			Metadata: map[string]any{"path": path.String(), "exclusive": exclusive, "error": err.Error()},
		})
		return treeError(path, err)
	}
	return nil
}

func (s *InMemoryNamingService) IsDirectory(ctx context.Context, path dfs_path.Path) (bool, error) {
	kind, err := s.tree.Stat(path)
	if err != nil {
		return false, treeError(path, err)
	}
	return kind == dt.KindDirectory, nil
}

func (s *InMemoryNamingService) List(ctx context.Context, dir dfs_path.Path) ([]string, error) {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Listing directory",
		Metadata: map[string]any{"path": dir.String()},
	})

	names, err := s.tree.List(dir)
	if err != nil {
		return nil, treeError(dir, err)
	}
	return names, nil
}

// CreateFile places the file on one registered storage node chosen by the
// selector. The remote create completes before the file becomes visible, so
// a failure leaves the namespace unchanged.
func (s *InMemoryNamingService) CreateFile(ctx context.Context, file dfs_path.Path) (bool, error) {
	s.ls.Info(log_service.LogEvent{
		Message:  "Creating file",
		Metadata: map[string]any{"path": file.String()},
	})

	if file.IsRoot() {
		return false, treeError(file, dt.ErrInvalidRoot)
	}

	created, err := s.tree.Insert(file, dt.KindFile, func() error {
		endpoints := s.registry.Endpoints()
		if len(endpoints) == 0 {
			return fmt.Errorf("no storage nodes registered: %w", ns.ErrIllegalState)
		}
		ep := endpoints[s.selector(len(endpoints))]

		ok, err := ep.Command.Create(ctx, file)
		if err != nil {
			s.ls.Error(log_service.LogEvent{
				Message:  "Remote create failed",
				Metadata: map[string]any{"path": file.String(), "error": err.Error()},
			})
			return fmt.Errorf("%w: %w", ns.ErrRemoteFailure, err)
		}
		if !ok {
			s.ls.Error(log_service.LogEvent{
				Message:  "Storage node refused create",
				Metadata: map[string]any{"path": file.String()},
			})
			return fmt.Errorf("%w: create %s refused", ns.ErrRemoteFailure, file)
		}
		return s.registry.AddReplica(file, ep)
	})
	if err != nil {
		return false, treeError(file, err)
	}

	if !created {
		s.ls.Warn(log_service.LogEvent{
			Message:  "File not created, name already exists",
			Metadata: map[string]any{"path": file.String()},
		})
		return false, nil
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "File created",
		Metadata: map[string]any{"path": file.String()},
	})
	return true, nil
}

func (s *InMemoryNamingService) CreateDirectory(ctx context.Context, dir dfs_path.Path) (bool, error) {
	s.ls.Info(log_service.LogEvent{
		Message:  "Creating directory",
		Metadata: map[string]any{"path": dir.String()},
	})

	if dir.IsRoot() {
		return false, treeError(dir, dt.ErrInvalidRoot)
	}

	created, err := s.tree.Insert(dir, dt.KindDirectory, nil)
	if err != nil {
		return false, treeError(dir, err)
	}
	if !created {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Directory not created, name already exists",
			Metadata: map[string]any{"path": dir.String()},
		})
	}
	return created, nil
}

// Delete detaches path from the namespace and then asks every storage node
// holding a file at or below it to remove its copy, once per node. When a
// node fails the namespace entry stays removed and the node may keep orphaned
// files.
func (s *InMemoryNamingService) Delete(ctx context.Context, path dfs_path.Path) (bool, error) {
	s.ls.Info(log_service.LogEvent{
		Message:  "Deleting path",
		Metadata: map[string]any{"path": path.String()},
	})

	err := s.tree.Remove(path, func(kind dt.Kind) error {
		holders := s.registry.RemoveUnder(path)

		var g errgroup.Group
		for _, ep := range holders {
			g.Go(func() error {
				ok, err := ep.Command.Delete(ctx, path)
				if err != nil {
					return fmt.Errorf("%w: %w", ns.ErrRemoteFailure, err)
				}
				if !ok {
					s.ls.Warn(log_service.LogEvent{
						Message:  "Storage node had nothing to delete",
						Metadata: map[string]any{"path": path.String()},
					})
				}
				return nil
			})
		}

		s.ls.Debug(log_service.LogEvent{
			Message:  "Issued remote deletes",
			Metadata: map[string]any{"path": path.String(), "kind": kind.String(), "nodes": len(holders)},
		})
		return g.Wait()
	})
	if err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Delete failed",
			Metadata: map[string]any{"path": path.String(), "error": err.Error()},
		})
		return false, treeError(path, err)
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Path deleted",
		Metadata: map[string]any{"path": path.String()},
	})
	return true, nil
}

func (s *InMemoryNamingService) GetStorage(ctx context.Context, file dfs_path.Path) (ss.Storage, error) {
	holders, err := s.registry.Replicas(file)
	if err != nil {
		s.ls.Warn(log_service.LogEvent{
			Message:  "No storage node holds file",
			Metadata: map[string]any{"path": file.String()},
		})
		return nil, fmt.Errorf("%s: %w", file, ns.ErrNotFound)
	}
	return holders[s.selector(len(holders))].Client, nil
}

// Register adds a storage node and grafts its files into the namespace.
// Files that collide with an existing entry are returned so the node can
// delete its local copies.
func (s *InMemoryNamingService) Register(ctx context.Context, client ss.Storage, command ss.Command, files []dfs_path.Path) ([]dfs_path.Path, error) {
	ep := ss.Endpoint{Client: client, Command: command}
	if !ep.IsValid() {
		return nil, fmt.Errorf("missing storage handle: %w", ns.ErrInvalidArgument)
	}
	if files == nil {
		return nil, fmt.Errorf("missing file list: %w", ns.ErrInvalidArgument)
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Registering storage node",
		Metadata: map[string]any{"files": len(files)},
	})

	if err := s.registry.RegisterEndpoint(ep); err != nil {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Storage node registration refused",
			Metadata: map[string]any{"error": err.Error()},
		})
		if errors.Is(err, rr.ErrEndpointAlreadyRegistered) {
			return nil, fmt.Errorf("%w: %w", ns.ErrIllegalState, err)
		}
		return nil, fmt.Errorf("%w: %w", ns.ErrInvalidArgument, err)
	}

	rejected := s.tree.Graft(files, func(file dfs_path.Path) {
		if err := s.registry.AddReplica(file, ep); err != nil {
			s.ls.Error(log_service.LogEvent{
				Message:  "Failed to record replica",
				Metadata: map[string]any{"path": file.String(), "error": err.Error()},
			})
		}
	})
	if rejected == nil {
		rejected = []dfs_path.Path{}
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Storage node registered",
		Metadata: map[string]any{"files": len(files), "rejected": len(rejected)},
	})
	return rejected, nil
}

var (
	_ ns.NamingService = (*InMemoryNamingService)(nil)
	_ ns.Registration  = (*InMemoryNamingService)(nil)
)
