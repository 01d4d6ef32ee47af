package remote

import (
	"context"
	"fmt"

	"github.com/AnishMulay/sanddfs/internal/communication"
	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

// CommandStub calls a storage node's command interface.
type CommandStub struct {
	address string
	comm    communication.Communicator
}

func NewCommandStub(address string, comm communication.Communicator) CommandStub {
	return CommandStub{address: address, comm: comm}
}

func (s CommandStub) Address() string { return s.address }

func (s CommandStub) Create(ctx context.Context, file dfs_path.Path) (bool, error) {
	return callBool(ctx, s.comm, s.address, communication.MessageTypeCommandCreate,
		communication.PathRequest{Path: file}, storageErrors)
}

func (s CommandStub) Delete(ctx context.Context, path dfs_path.Path) (bool, error) {
	return callBool(ctx, s.comm, s.address, communication.MessageTypeCommandDelete,
		communication.PathRequest{Path: path}, storageErrors)
}

// Copy asks the node to pull file from source, which must be a handle with a
// network address such as a StorageStub.
func (s CommandStub) Copy(ctx context.Context, file dfs_path.Path, source ss.Storage) (bool, error) {
	src, ok := source.(Addressable)
	if !ok {
		return false, fmt.Errorf("copy source: %w", ErrNoAddress)
	}
	return callBool(ctx, s.comm, s.address, communication.MessageTypeCommandCopy,
		communication.CopyRequest{Path: file, SourceAddress: src.Address()}, storageErrors)
}

var _ ss.Command = CommandStub{}
