package remote

import (
	"context"

	"github.com/AnishMulay/sanddfs/internal/communication"
	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

// StorageStub calls a storage node's client interface. Stubs with the same
// address and communicator compare equal, which is what the naming server
// relies on to detect a node registering twice.
type StorageStub struct {
	address string
	comm    communication.Communicator
}

func NewStorageStub(address string, comm communication.Communicator) StorageStub {
	return StorageStub{address: address, comm: comm}
}

func (s StorageStub) Address() string { return s.address }

func (s StorageStub) Size(ctx context.Context, file dfs_path.Path) (int64, error) {
	body, err := call(ctx, s.comm, s.address, communication.MessageTypeSize,
		communication.PathRequest{Path: file}, storageErrors)
	if err != nil {
		return 0, err
	}
	var out communication.SizeResponse
	if err := decode(body, &out); err != nil {
		return 0, err
	}
	return out.Size, nil
}

// Read returns the raw response body; the storage server sends file bytes
// unencoded.
func (s StorageStub) Read(ctx context.Context, file dfs_path.Path, offset int64, length int) ([]byte, error) {
	body, err := call(ctx, s.comm, s.address, communication.MessageTypeRead,
		communication.ReadRequest{Path: file, Offset: offset, Length: length}, storageErrors)
	if err != nil {
		return nil, err
	}
	if body == nil {
		body = []byte{}
	}
	return body, nil
}

func (s StorageStub) Write(ctx context.Context, file dfs_path.Path, offset int64, data []byte) error {
	_, err := call(ctx, s.comm, s.address, communication.MessageTypeWrite,
		communication.WriteRequest{Path: file, Offset: offset, Data: data}, storageErrors)
	return err
}

var _ ss.Storage = StorageStub{}
