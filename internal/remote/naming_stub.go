package remote

import (
	"context"

	"github.com/AnishMulay/sanddfs/internal/communication"
	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	ns "github.com/AnishMulay/sanddfs/internal/naming_service"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

// NamingStub calls a naming server's service interface.
type NamingStub struct {
	address string
	comm    communication.Communicator
}

func NewNamingStub(address string, comm communication.Communicator) NamingStub {
	return NamingStub{address: address, comm: comm}
}

func (s NamingStub) Address() string { return s.address }

func (s NamingStub) Lock(ctx context.Context, path dfs_path.Path, exclusive bool) error {
	_, err := call(ctx, s.comm, s.address, communication.MessageTypeLock,
		communication.LockRequest{Path: path, Exclusive: exclusive}, lockErrors)
	return err
}

func (s NamingStub) Unlock(ctx context.Context, path dfs_path.Path, exclusive bool) error {
	_, err := call(ctx, s.comm, s.address, communication.MessageTypeUnlock,
		communication.LockRequest{Path: path, Exclusive: exclusive}, lockErrors)
	return err
}

func (s NamingStub) IsDirectory(ctx context.Context, path dfs_path.Path) (bool, error) {
	return callBool(ctx, s.comm, s.address, communication.MessageTypeIsDirectory,
		communication.PathRequest{Path: path}, namingErrors)
}

func (s NamingStub) List(ctx context.Context, dir dfs_path.Path) ([]string, error) {
	body, err := call(ctx, s.comm, s.address, communication.MessageTypeList,
		communication.PathRequest{Path: dir}, namingErrors)
	if err != nil {
		return nil, err
	}
	var out communication.ListResponse
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	if out.Names == nil {
		out.Names = []string{}
	}
	return out.Names, nil
}

func (s NamingStub) CreateFile(ctx context.Context, file dfs_path.Path) (bool, error) {
	return callBool(ctx, s.comm, s.address, communication.MessageTypeCreateFile,
		communication.PathRequest{Path: file}, namingErrors)
}

func (s NamingStub) CreateDirectory(ctx context.Context, dir dfs_path.Path) (bool, error) {
	return callBool(ctx, s.comm, s.address, communication.MessageTypeCreateDirectory,
		communication.PathRequest{Path: dir}, namingErrors)
}

func (s NamingStub) Delete(ctx context.Context, path dfs_path.Path) (bool, error) {
	return callBool(ctx, s.comm, s.address, communication.MessageTypeDelete,
		communication.PathRequest{Path: path}, namingErrors)
}

// GetStorage returns a StorageStub for the node chosen by the naming server,
// sharing this stub's communicator.
func (s NamingStub) GetStorage(ctx context.Context, file dfs_path.Path) (ss.Storage, error) {
	body, err := call(ctx, s.comm, s.address, communication.MessageTypeGetStorage,
		communication.PathRequest{Path: file}, namingErrors)
	if err != nil {
		return nil, err
	}
	var out communication.GetStorageResponse
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	return NewStorageStub(out.ClientAddress, s.comm), nil
}

var _ ns.NamingService = NamingStub{}
