package storage

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/AnishMulay/sanddfs/internal/communication"
	"github.com/AnishMulay/sanddfs/internal/dfs_path"
	"github.com/AnishMulay/sanddfs/internal/log_service"
	"github.com/AnishMulay/sanddfs/internal/metrics"
	ns "github.com/AnishMulay/sanddfs/internal/naming_service"
	"github.com/AnishMulay/sanddfs/internal/remote"
	ps "github.com/AnishMulay/sanddfs/internal/server"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

// LocalStore is a storage service backed by a local directory it can
// enumerate and prune.
type LocalStore interface {
	ss.StorageService
	ListFiles() ([]dfs_path.Path, error)
	RemoveDuplicates(files []dfs_path.Path)
}

// StorageServer serves the client interface and the command interface of one
// storage node on two communicators.
type StorageServer struct {
	clientComm  communication.Communicator
	commandComm communication.Communicator
	store       LocalStore
	ls          log_service.LogService
	metrics     metrics.RequestMetrics

	stopOnce sync.Once
	stopErr  error
}

func NewStorageServer(
	clientComm communication.Communicator,
	commandComm communication.Communicator,
	store LocalStore,
	ls log_service.LogService,
	m metrics.RequestMetrics,
) *StorageServer {
	if m == nil {
		m = metrics.NoopRequestMetrics{}
	}
	return &StorageServer{
		clientComm:  clientComm,
		commandComm: commandComm,
		store:       store,
		ls:          ls,
		metrics:     m,
	}
}

// Start brings both interfaces up and registers the node's local files with
// the naming server. Files the naming server already knows about are deleted
// locally.
func (s *StorageServer) Start(ctx context.Context, registration ns.Registration) error {
	s.ls.Info(log_service.LogEvent{
		Message: "Starting storage server",
		Metadata: map[string]any{
			"client":  s.clientComm.Address(),
			"command": s.commandComm.Address(),
		},
	})

	s.registerPayloads()

	if err := s.clientComm.Start(ps.Instrument("storage", s.handleClient, s.metrics, s.ls)); err != nil {
		return fmt.Errorf("%w: %w", ps.ErrServerStartFailed, err)
	}
	if err := s.commandComm.Start(ps.Instrument("command", s.handleCommand, s.metrics, s.ls)); err != nil {
		_ = s.clientComm.Stop()
		return fmt.Errorf("%w: %w", ps.ErrServerStartFailed, err)
	}

	files, err := s.store.ListFiles()
	if err != nil {
		_ = s.Stop()
		return fmt.Errorf("%w: %w", ps.ErrServerStartFailed, err)
	}

	rejected, err := registration.Register(ctx,
		remote.NewStorageStub(s.clientComm.Address(), s.clientComm),
		remote.NewCommandStub(s.commandComm.Address(), s.commandComm),
		files,
	)
	if err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Registration with naming server failed",
			Metadata: map[string]any{"error": err.Error()},
		})
		_ = s.Stop()
		return fmt.Errorf("%w: %w", ps.ErrRegistrationFailed, err)
	}

	if len(rejected) > 0 {
		s.store.RemoveDuplicates(rejected)
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Storage server registered",
		Metadata: map[string]any{"files": len(files), "rejected": len(rejected)},
	})
	return nil
}

func (s *StorageServer) Stop() error {
	s.stopOnce.Do(func() {
		s.ls.Info(log_service.LogEvent{Message: "Stopping storage server"})
		cmdErr := s.commandComm.Stop()
		clientErr := s.clientComm.Stop()
		if cmdErr != nil || clientErr != nil {
			s.stopErr = fmt.Errorf("%w: command=%v client=%v", ps.ErrServerStopFailed, cmdErr, clientErr)
		}
	})
	return s.stopErr
}

func (s *StorageServer) registerPayloads() {
	pathReq := reflect.TypeOf(communication.PathRequest{})

	s.clientComm.RegisterPayloadType(communication.MessageTypeSize, pathReq)
	s.clientComm.RegisterPayloadType(communication.MessageTypeRead, reflect.TypeOf(communication.ReadRequest{}))
	s.clientComm.RegisterPayloadType(communication.MessageTypeWrite, reflect.TypeOf(communication.WriteRequest{}))

	s.commandComm.RegisterPayloadType(communication.MessageTypeCommandCreate, pathReq)
	s.commandComm.RegisterPayloadType(communication.MessageTypeCommandDelete, pathReq)
	s.commandComm.RegisterPayloadType(communication.MessageTypeCommandCopy, reflect.TypeOf(communication.CopyRequest{}))
}

func (s *StorageServer) handleClient(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	switch msg.Type {
	case communication.MessageTypeSize:
		req, err := ps.Payload[communication.PathRequest](msg)
		if err != nil {
			return ps.Respond(nil, err)
		}
		size, err := s.store.Size(ctx, req.Path)
		if err != nil {
			return ps.Respond(nil, err)
		}
		return ps.Respond(communication.SizeResponse{Size: size}, nil)

	case communication.MessageTypeRead:
		req, err := ps.Payload[communication.ReadRequest](msg)
		if err != nil {
			return ps.Respond(nil, err)
		}
		data, err := s.store.Read(ctx, req.Path, req.Offset, req.Length)
		if err != nil {
			return ps.Respond(nil, err)
		}
		return ps.Respond(data, nil)

	case communication.MessageTypeWrite:
		req, err := ps.Payload[communication.WriteRequest](msg)
		if err != nil {
			return ps.Respond(nil, err)
		}
		return ps.Respond(nil, s.store.Write(ctx, req.Path, req.Offset, req.Data))

	default:
		return ps.UnknownMessage(msg.Type)
	}
}

func (s *StorageServer) handleCommand(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	switch msg.Type {
	case communication.MessageTypeCommandCreate:
		req, err := ps.Payload[communication.PathRequest](msg)
		if err != nil {
			return ps.Respond(nil, err)
		}
		return respondBool(s.store.Create(ctx, req.Path))

	case communication.MessageTypeCommandDelete:
		req, err := ps.Payload[communication.PathRequest](msg)
		if err != nil {
			return ps.Respond(nil, err)
		}
		return respondBool(s.store.Delete(ctx, req.Path))

	case communication.MessageTypeCommandCopy:
		req, err := ps.Payload[communication.CopyRequest](msg)
		if err != nil {
			return ps.Respond(nil, err)
		}
		if req.SourceAddress == "" {
			return ps.Respond(nil, fmt.Errorf("copy source address required: %w", ns.ErrInvalidArgument))
		}
		if req.SourceAddress == s.clientComm.Address() {
			return ps.Respond(nil, fmt.Errorf("copy source %s is this node: %w", req.SourceAddress, ns.ErrInvalidArgument))
		}
		source := remote.NewStorageStub(req.SourceAddress, s.clientComm)
		return respondBool(s.store.Copy(ctx, req.Path, source))

	default:
		return ps.UnknownMessage(msg.Type)
	}
}

func respondBool(value bool, err error) (*communication.Response, error) {
	if err != nil {
		return ps.Respond(nil, err)
	}
	return ps.Respond(communication.BoolResponse{Value: value}, nil)
}
