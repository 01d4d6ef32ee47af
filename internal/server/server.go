package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/AnishMulay/sanddfs/internal/communication"
	"github.com/AnishMulay/sanddfs/internal/log_service"
	"github.com/AnishMulay/sanddfs/internal/metrics"
	ns "github.com/AnishMulay/sanddfs/internal/naming_service"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

// CodeFor maps a service error onto the response code carried back to the
// caller.
func CodeFor(err error) communication.SandCode {
	switch {
	case errors.Is(err, ns.ErrNotFound), errors.Is(err, ss.ErrNotFound):
		return communication.CodeNotFound
	case errors.Is(err, ns.ErrInvalidArgument), errors.Is(err, ErrInvalidPayloadType):
		return communication.CodeBadRequest
	case errors.Is(err, ns.ErrIllegalState), errors.Is(err, ns.ErrInvalidState):
		return communication.CodeConflict
	case errors.Is(err, ss.ErrOutOfBounds):
		return communication.CodeOutOfRange
	case errors.Is(err, ns.ErrRemoteFailure):
		return communication.CodeUnavailable
	default:
		return communication.CodeInternal
	}
}

// Respond turns a handler result into a response. []byte data is sent as is,
// anything else as JSON.
func Respond(data any, err error) (*communication.Response, error) {
	if err != nil {
		return &communication.Response{
			Code: CodeFor(err),
			Body: []byte(err.Error()),
		}, nil
	}

	switch v := data.(type) {
	case nil:
		return &communication.Response{Code: communication.CodeOK}, nil
	case []byte:
		return &communication.Response{Code: communication.CodeOK, Body: v}, nil
	}

	body, marshalErr := json.Marshal(data)
	if marshalErr != nil {
		return &communication.Response{
			Code: communication.CodeInternal,
			Body: []byte("failed to marshal response: " + marshalErr.Error()),
		}, nil
	}
	return &communication.Response{Code: communication.CodeOK, Body: body}, nil
}

// UnknownMessage is the response for a message type a dispatcher does not
// serve.
func UnknownMessage(msgType string) (*communication.Response, error) {
	return &communication.Response{
		Code: communication.CodeBadRequest,
		Body: []byte("unknown message type: " + msgType),
	}, nil
}

// Instrument wraps a dispatcher with request logging and metrics.
func Instrument(service string, handler communication.MessageHandler, m metrics.RequestMetrics, ls log_service.LogService) communication.MessageHandler {
	return func(ctx context.Context, msg communication.Message) (*communication.Response, error) {
		start := time.Now()
		m.RecordRequestStart(msg.Type)

		resp, err := handler(ctx, msg)

		code := communication.CodeInternal
		if err == nil && resp != nil {
			code = resp.Code
		}
		m.RecordRequest(msg.Type, string(code), time.Since(start))

		ls.Debug(log_service.LogEvent{
			Message: "Handled message",
			Metadata: map[string]any{
				"service":  service,
				"type":     msg.Type,
				"id":       msg.ID,
				"from":     msg.From,
				"code":     code,
				"duration": time.Since(start).String(),
			},
		})
		return resp, err
	}
}

// Payload extracts the typed payload of msg.
func Payload[T any](msg communication.Message) (T, error) {
	req, ok := msg.Payload.(T)
	if !ok {
		var zero T
		return zero, ErrInvalidPayloadType
	}
	return req, nil
}
