package naming

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/AnishMulay/sanddfs/internal/communication"
	"github.com/AnishMulay/sanddfs/internal/log_service"
	"github.com/AnishMulay/sanddfs/internal/metrics"
	ns "github.com/AnishMulay/sanddfs/internal/naming_service"
	"github.com/AnishMulay/sanddfs/internal/remote"
	ps "github.com/AnishMulay/sanddfs/internal/server"
)

// NamingServer serves the naming interface to clients and the registration
// interface to storage nodes on two separate communicators. Storage node
// stubs created at registration send through the service communicator.
type NamingServer struct {
	serviceComm      communication.Communicator
	registrationComm communication.Communicator
	svc              ns.NamingService
	registration     ns.Registration
	ls               log_service.LogService
	metrics          metrics.RequestMetrics

	stopOnce sync.Once
	stopErr  error
}

func NewNamingServer(
	serviceComm communication.Communicator,
	registrationComm communication.Communicator,
	svc ns.NamingService,
	registration ns.Registration,
	ls log_service.LogService,
	m metrics.RequestMetrics,
) *NamingServer {
	if m == nil {
		m = metrics.NoopRequestMetrics{}
	}
	return &NamingServer{
		serviceComm:      serviceComm,
		registrationComm: registrationComm,
		svc:              svc,
		registration:     registration,
		ls:               ls,
		metrics:          m,
	}
}

func (s *NamingServer) Start() error {
	s.ls.Info(log_service.LogEvent{
		Message: "Starting naming server",
		Metadata: map[string]any{
			"service":      s.serviceComm.Address(),
			"registration": s.registrationComm.Address(),
		},
	})

	s.registerPayloads()

	if err := s.serviceComm.Start(ps.Instrument("naming", s.handleService, s.metrics, s.ls)); err != nil {
		return fmt.Errorf("%w: %w", ps.ErrServerStartFailed, err)
	}
	if err := s.registrationComm.Start(ps.Instrument("registration", s.handleRegistration, s.metrics, s.ls)); err != nil {
		_ = s.serviceComm.Stop()
		return fmt.Errorf("%w: %w", ps.ErrServerStartFailed, err)
	}
	return nil
}

// Stop shuts both interfaces down. Calls after the first return its result.
func (s *NamingServer) Stop() error {
	s.stopOnce.Do(func() {
		s.ls.Info(log_service.LogEvent{Message: "Stopping naming server"})
		regErr := s.registrationComm.Stop()
		svcErr := s.serviceComm.Stop()
		if regErr != nil || svcErr != nil {
			s.stopErr = fmt.Errorf("%w: registration=%v service=%v", ps.ErrServerStopFailed, regErr, svcErr)
		}
	})
	return s.stopErr
}

func (s *NamingServer) registerPayloads() {
	pathReq := reflect.TypeOf(communication.PathRequest{})
	lockReq := reflect.TypeOf(communication.LockRequest{})

	s.serviceComm.RegisterPayloadType(communication.MessageTypeLock, lockReq)
	s.serviceComm.RegisterPayloadType(communication.MessageTypeUnlock, lockReq)
	s.serviceComm.RegisterPayloadType(communication.MessageTypeIsDirectory, pathReq)
	s.serviceComm.RegisterPayloadType(communication.MessageTypeList, pathReq)
	s.serviceComm.RegisterPayloadType(communication.MessageTypeCreateFile, pathReq)
	s.serviceComm.RegisterPayloadType(communication.MessageTypeCreateDirectory, pathReq)
	s.serviceComm.RegisterPayloadType(communication.MessageTypeDelete, pathReq)
	s.serviceComm.RegisterPayloadType(communication.MessageTypeGetStorage, pathReq)

	s.registrationComm.RegisterPayloadType(communication.MessageTypeRegister, reflect.TypeOf(communication.RegisterRequest{}))
}

func (s *NamingServer) handleService(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	switch msg.Type {
	case communication.MessageTypeLock:
		req, err := ps.Payload[communication.LockRequest](msg)
		if err != nil {
			return ps.Respond(nil, err)
		}
		return ps.Respond(nil, s.svc.Lock(ctx, req.Path, req.Exclusive))

	case communication.MessageTypeUnlock:
		req, err := ps.Payload[communication.LockRequest](msg)
		if err != nil {
			return ps.Respond(nil, err)
		}
		return ps.Respond(nil, s.svc.Unlock(ctx, req.Path, req.Exclusive))
	}

	req, err := ps.Payload[communication.PathRequest](msg)
	if err != nil {
		return ps.UnknownMessage(msg.Type)
	}

	switch msg.Type {
	case communication.MessageTypeIsDirectory:
		return respondBool(s.svc.IsDirectory(ctx, req.Path))

	case communication.MessageTypeList:
		names, err := s.svc.List(ctx, req.Path)
		if err != nil {
			return ps.Respond(nil, err)
		}
		return ps.Respond(communication.ListResponse{Names: names}, nil)

	case communication.MessageTypeCreateFile:
		return respondBool(s.svc.CreateFile(ctx, req.Path))

	case communication.MessageTypeCreateDirectory:
		return respondBool(s.svc.CreateDirectory(ctx, req.Path))

	case communication.MessageTypeDelete:
		return respondBool(s.svc.Delete(ctx, req.Path))

	case communication.MessageTypeGetStorage:
		storage, err := s.svc.GetStorage(ctx, req.Path)
		if err != nil {
			return ps.Respond(nil, err)
		}
		addressable, ok := storage.(remote.Addressable)
		if !ok {
			return ps.Respond(nil, remote.ErrNoAddress)
		}
		return ps.Respond(communication.GetStorageResponse{ClientAddress: addressable.Address()}, nil)

	default:
		return ps.UnknownMessage(msg.Type)
	}
}

func (s *NamingServer) handleRegistration(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	if msg.Type != communication.MessageTypeRegister {
		return ps.UnknownMessage(msg.Type)
	}

	req, err := ps.Payload[communication.RegisterRequest](msg)
	if err != nil {
		return ps.Respond(nil, err)
	}
	if req.ClientAddress == "" || req.CommandAddress == "" {
		return ps.Respond(nil, fmt.Errorf("storage node addresses required: %w", ns.ErrInvalidArgument))
	}

	s.ls.Info(log_service.LogEvent{
		Message: "Storage node registering",
		Metadata: map[string]any{
			"client":  req.ClientAddress,
			"command": req.CommandAddress,
			"files":   len(req.Files),
		},
	})

	rejected, err := s.registration.Register(ctx,
		remote.NewStorageStub(req.ClientAddress, s.serviceComm),
		remote.NewCommandStub(req.CommandAddress, s.serviceComm),
		req.Files,
	)
	if err != nil {
		return ps.Respond(nil, err)
	}
	return ps.Respond(communication.RegisterResponse{Rejected: rejected}, nil)
}

func respondBool(value bool, err error) (*communication.Response, error) {
	if err != nil {
		return ps.Respond(nil, err)
	}
	return ps.Respond(communication.BoolResponse{Value: value}, nil)
}
