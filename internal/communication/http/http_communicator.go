package httpcomm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/AnishMulay/sanddfs/internal/communication"
	"github.com/AnishMulay/sanddfs/internal/log_service"
)

const messagePath = "/message"

type HTTPCommunicator struct {
	listenAddress string
	listener      net.Listener
	httpServer    *http.Server
	handler       communication.MessageHandler
	ls            log_service.LogService
	client        *http.Client
	payloads      *communication.PayloadRegistry

	stopMutex sync.Mutex
	stopped   bool
}

func NewHTTPCommunicator(listenAddress string, ls log_service.LogService) *HTTPCommunicator {
	return &HTTPCommunicator{
		listenAddress: listenAddress,
		ls:            ls,
		client:        &http.Client{},
		payloads:      communication.NewPayloadRegistry(),
	}
}

func (c *HTTPCommunicator) Address() string {
	return c.listenAddress
}

func (c *HTTPCommunicator) RegisterPayloadType(msgType string, payloadType reflect.Type) {
	c.payloads.Register(msgType, payloadType)
}

func (c *HTTPCommunicator) Start(handler communication.MessageHandler) error {
	c.ls.Info(log_service.LogEvent{
		Message:  "Starting HTTP communicator",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	c.handler = handler

	mux := http.NewServeMux()
	mux.HandleFunc(messagePath, c.handleHTTPMessage)
	c.httpServer = &http.Server{
		Addr:    c.listenAddress,
		Handler: mux,
	}

	lis, err := net.Listen("tcp", c.listenAddress)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to listen on address",
			Metadata: map[string]any{"address": c.listenAddress, "error": err.Error()},
		})
		return fmt.Errorf("%w: %w", communication.ErrServerStartFailed, err)
	}
	c.listener = lis

	c.ls.Info(log_service.LogEvent{
		Message:  "HTTP communicator started successfully",
		Metadata: map[string]any{"address": lis.Addr().String()},
	})

	go func() {
		if err := c.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.ls.Error(log_service.LogEvent{
				Message:  "HTTP server error",
				Metadata: map[string]any{"address": c.listenAddress, "error": err.Error()},
			})
		}
	}()

	return nil
}

// ListenAddr returns the bound address once started, which differs from
// Address when listening on port 0.
func (c *HTTPCommunicator) ListenAddr() string {
	if c.listener == nil {
		return c.listenAddress
	}
	return c.listener.Addr().String()
}

func (c *HTTPCommunicator) Stop() error {
	c.stopMutex.Lock()
	defer c.stopMutex.Unlock()

	if c.stopped || c.httpServer == nil {
		return nil
	}

	c.ls.Info(log_service.LogEvent{
		Message:  "Stopping HTTP communicator",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.httpServer.Shutdown(ctx); err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to stop HTTP server",
			Metadata: map[string]any{"address": c.listenAddress, "error": err.Error()},
		})
		return fmt.Errorf("%w: %w", communication.ErrServerStopFailed, err)
	}
	c.stopped = true

	c.ls.Info(log_service.LogEvent{
		Message:  "HTTP communicator stopped successfully",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	return nil
}

func mapToHTTPCode(code communication.SandCode) int {
	switch code {
	case communication.CodeOK:
		return http.StatusOK
	case communication.CodeBadRequest:
		return http.StatusBadRequest
	case communication.CodeNotFound:
		return http.StatusNotFound
	case communication.CodeConflict:
		return http.StatusConflict
	case communication.CodeOutOfRange:
		return http.StatusRequestedRangeNotSatisfiable
	case communication.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func mapFromHTTPCode(code int) communication.SandCode {
	switch code {
	case http.StatusOK:
		return communication.CodeOK
	case http.StatusBadRequest:
		return communication.CodeBadRequest
	case http.StatusNotFound:
		return communication.CodeNotFound
	case http.StatusConflict:
		return communication.CodeConflict
	case http.StatusRequestedRangeNotSatisfiable:
		return communication.CodeOutOfRange
	case http.StatusServiceUnavailable:
		return communication.CodeUnavailable
	default:
		return communication.CodeInternal
	}
}

func (c *HTTPCommunicator) Send(ctx context.Context, to string, msg communication.Message) (*communication.Response, error) {
	c.ls.Debug(log_service.LogEvent{
		Message:  "Sending HTTP message",
		Metadata: map[string]any{"to": to, "type": msg.Type, "id": msg.ID},
	})

	jsonData, err := communication.EncodeMessage(msg)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to marshal message",
			Metadata: map[string]any{"to": to, "type": msg.Type, "error": err.Error()},
		})
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("http://%s%s", to, messagePath), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", communication.ErrHTTPRequestCreateFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to send HTTP request",
			Metadata: map[string]any{"to": to, "type": msg.Type, "error": err.Error()},
		})
		return nil, fmt.Errorf("%w: %w", communication.ErrMessageSendFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", communication.ErrMessageSendFailed, err)
	}

	c.ls.Debug(log_service.LogEvent{
		Message:  "HTTP message sent successfully",
		Metadata: map[string]any{"to": to, "type": msg.Type, "status": resp.StatusCode},
	})

	return &communication.Response{
		Code: mapFromHTTPCode(resp.StatusCode),
		Body: body,
	}, nil
}

func (c *HTTPCommunicator) handleHTTPMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, communication.ErrHTTPBodyReadFailed.Error(), http.StatusBadRequest)
		return
	}

	if c.handler == nil {
		http.Error(w, communication.ErrHandlerNotSet.Error(), http.StatusServiceUnavailable)
		return
	}

	msg, err := c.payloads.Decode(body)
	if err != nil {
		c.ls.Warn(log_service.LogEvent{
			Message:  "Rejecting undecodable message",
			Metadata: map[string]any{"type": msg.Type, "error": err.Error()},
		})
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := c.handler(r.Context(), msg)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Message handler failed",
			Metadata: map[string]any{"type": msg.Type, "error": err.Error()},
		})
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if resp == nil {
		http.Error(w, "handler returned nil response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(mapToHTTPCode(resp.Code))
	if len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			c.ls.Error(log_service.LogEvent{
				Message:  "Failed to write HTTP response body",
				Metadata: map[string]any{"error": err.Error()},
			})
		}
	}
}

var _ communication.Communicator = (*HTTPCommunicator)(nil)
