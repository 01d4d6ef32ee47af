package remote

import (
	"context"
	"fmt"

	"github.com/AnishMulay/sanddfs/internal/communication"
	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	ns "github.com/AnishMulay/sanddfs/internal/naming_service"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

// RegistrationStub calls a naming server's registration interface. The
// handles passed to Register travel as their network addresses.
type RegistrationStub struct {
	address string
	comm    communication.Communicator
}

func NewRegistrationStub(address string, comm communication.Communicator) RegistrationStub {
	return RegistrationStub{address: address, comm: comm}
}

func (s RegistrationStub) Address() string { return s.address }

func (s RegistrationStub) Register(ctx context.Context, client ss.Storage, command ss.Command, files []dfs_path.Path) ([]dfs_path.Path, error) {
	clientAddr, ok := client.(Addressable)
	if !ok {
		return nil, fmt.Errorf("client handle: %w", ErrNoAddress)
	}
	commandAddr, ok := command.(Addressable)
	if !ok {
		return nil, fmt.Errorf("command handle: %w", ErrNoAddress)
	}
	if files == nil {
		files = []dfs_path.Path{}
	}

	body, err := call(ctx, s.comm, s.address, communication.MessageTypeRegister, communication.RegisterRequest{
		ClientAddress:  clientAddr.Address(),
		CommandAddress: commandAddr.Address(),
		Files:          files,
	}, namingErrors)
	if err != nil {
		return nil, err
	}

	var out communication.RegisterResponse
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	if out.Rejected == nil {
		out.Rejected = []dfs_path.Path{}
	}
	return out.Rejected, nil
}

var _ ns.Registration = RegistrationStub{}
