package grpccomm

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"reflect"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/AnishMulay/sanddfs/internal/communication"
	"github.com/AnishMulay/sanddfs/internal/log_service"
)

// Requests are encoded with communication.EncodeMessage and responses as
// wireResponse, both as JSON inside a BytesValue envelope.
type wireResponse struct {
	Code    communication.SandCode `json:"code"`
	Body    []byte                 `json:"body,omitempty"`
	Headers map[string]string      `json:"headers,omitempty"`
}

type Option func(*GRPCCommunicator)

// WithListener serves on lis instead of listening on the configured address.
func WithListener(lis net.Listener) Option {
	return func(c *GRPCCommunicator) { c.listener = lis }
}

// WithDialOptions adds options used when connecting to peers.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *GRPCCommunicator) { c.dialOptions = append(c.dialOptions, opts...) }
}

type GRPCCommunicator struct {
	listenAddress string
	listener      net.Listener
	dialOptions   []grpc.DialOption
	handler       communication.MessageHandler
	grpcServer    *grpc.Server
	ls            log_service.LogService

	clientLock sync.RWMutex
	clients    map[string]*grpc.ClientConn
	payloads   *communication.PayloadRegistry
	stopped    bool
	stopMutex  sync.Mutex
}

func NewGRPCCommunicator(addr string, ls log_service.LogService, opts ...Option) *GRPCCommunicator {
	c := &GRPCCommunicator{
		listenAddress: addr,
		ls:            ls,
		dialOptions:   []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		clients:       make(map[string]*grpc.ClientConn),
		payloads:      communication.NewPayloadRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GRPCCommunicator) Address() string {
	return c.listenAddress
}

func (c *GRPCCommunicator) RegisterPayloadType(msgType string, payloadType reflect.Type) {
	c.payloads.Register(msgType, payloadType)
}

func (c *GRPCCommunicator) Start(handler communication.MessageHandler) error {
	c.ls.Info(log_service.LogEvent{
		Message:  "Starting GRPC communicator",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	c.handler = handler
	c.grpcServer = grpc.NewServer()
	c.grpcServer.RegisterService(&messageServiceDesc, &grpcServer{comm: c})

	lis := c.listener
	if lis == nil {
		var err error
		lis, err = net.Listen("tcp", c.listenAddress)
		if err != nil {
			c.ls.Error(log_service.LogEvent{
				Message:  "Failed to listen on address",
				Metadata: map[string]any{"address": c.listenAddress, "error": err.Error()},
			})
			return fmt.Errorf("%w: %w", communication.ErrGRPCListenFailed, err)
		}
	}

	c.ls.Info(log_service.LogEvent{
		Message:  "GRPC communicator started successfully",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	go func() {
		if err := c.grpcServer.Serve(lis); err != nil {
			c.ls.Error(log_service.LogEvent{
				Message:  "GRPC server error",
				Metadata: map[string]any{"address": c.listenAddress, "error": err.Error()},
			})
		}
	}()
	return nil
}

func (c *GRPCCommunicator) Stop() error {
	c.stopMutex.Lock()
	defer c.stopMutex.Unlock()

	if c.stopped {
		c.ls.Debug(log_service.LogEvent{
			Message:  "GRPC communicator already stopped, skipping",
			Metadata: map[string]any{"address": c.listenAddress},
		})
		return nil
	}

	c.ls.Info(log_service.LogEvent{
		Message:  "Stopping GRPC communicator",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	if c.grpcServer != nil {
		c.grpcServer.GracefulStop()
	}

	c.clientLock.Lock()
	for to, conn := range c.clients {
		_ = conn.Close()
		delete(c.clients, to)
	}
	c.clientLock.Unlock()

	c.stopped = true
	c.ls.Info(log_service.LogEvent{
		Message:  "GRPC communicator stopped successfully",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	return nil
}

func (c *GRPCCommunicator) conn(to string) (*grpc.ClientConn, error) {
	c.clientLock.RLock()
	conn, ok := c.clients[to]
	c.clientLock.RUnlock()
	if ok {
		return conn, nil
	}

	c.clientLock.Lock()
	defer c.clientLock.Unlock()
	if conn, ok := c.clients[to]; ok {
		return conn, nil
	}

	c.ls.Debug(log_service.LogEvent{
		Message:  "Creating new GRPC client",
		Metadata: map[string]any{"to": to},
	})
	conn, err := grpc.NewClient(to, c.dialOptions...)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to create GRPC client",
			Metadata: map[string]any{"to": to, "error": err.Error()},
		})
		return nil, fmt.Errorf("%w: %w", communication.ErrClientCreateFailed, err)
	}
	c.clients[to] = conn
	return conn, nil
}

func (c *GRPCCommunicator) Send(ctx context.Context, to string, msg communication.Message) (*communication.Response, error) {
	c.ls.Debug(log_service.LogEvent{
		Message:  "Sending GRPC message",
		Metadata: map[string]any{"to": to, "type": msg.Type, "id": msg.ID},
	})

	conn, err := c.conn(to)
	if err != nil {
		return nil, err
	}

	reqBytes, err := communication.EncodeMessage(msg)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to marshal payload",
			Metadata: map[string]any{"to": to, "type": msg.Type, "error": err.Error()},
		})
		return nil, err
	}

	out := new(wrapperspb.BytesValue)
	if err := conn.Invoke(ctx, sendMessageMethod, wrapperspb.Bytes(reqBytes), out); err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to send GRPC message",
			Metadata: map[string]any{"to": to, "type": msg.Type, "error": err.Error()},
		})
		return nil, fmt.Errorf("%w: %w", communication.ErrMessageSendFailed, err)
	}

	var wr wireResponse
	if err := json.Unmarshal(out.GetValue(), &wr); err != nil {
		return nil, fmt.Errorf("%w: %w", communication.ErrMessageSendFailed, communication.ErrResponseDecodeFailed)
	}

	c.ls.Debug(log_service.LogEvent{
		Message:  "GRPC message sent successfully",
		Metadata: map[string]any{"to": to, "type": msg.Type, "responseCode": wr.Code},
	})

	return &communication.Response{
		Code:    wr.Code,
		Body:    wr.Body,
		Headers: wr.Headers,
	}, nil
}

type grpcServer struct {
	comm *GRPCCommunicator
}

func (s *grpcServer) SendMessage(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	resp := s.handle(ctx, req.GetValue())
	out, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(out), nil
}

func (s *grpcServer) handle(ctx context.Context, raw []byte) wireResponse {
	if s.comm.handler == nil {
		return wireResponse{Code: communication.CodeInternal, Body: []byte(communication.ErrHandlerNotSet.Error())}
	}

	msg, err := s.comm.payloads.Decode(raw)
	if err != nil {
		s.comm.ls.Warn(log_service.LogEvent{
			Message:  "Rejecting undecodable message",
			Metadata: map[string]any{"type": msg.Type, "error": err.Error()},
		})
		return wireResponse{Code: communication.CodeBadRequest, Body: []byte(err.Error())}
	}

	resp, err := s.comm.handler(ctx, msg)
	if err != nil {
		s.comm.ls.Error(log_service.LogEvent{
			Message:  "Message handler failed",
			Metadata: map[string]any{"type": msg.Type, "error": err.Error()},
		})
		return wireResponse{Code: communication.CodeInternal, Body: []byte(err.Error())}
	}
	if resp == nil {
		return wireResponse{Code: communication.CodeInternal, Body: []byte("handler returned nil response")}
	}
	return wireResponse{Code: resp.Code, Body: resp.Body, Headers: resp.Headers}
}

var _ communication.Communicator = (*GRPCCommunicator)(nil)
