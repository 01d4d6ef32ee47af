package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AnishMulay/sanddfs/internal/communication"
	ns "github.com/AnishMulay/sanddfs/internal/naming_service"
	ss "github.com/AnishMulay/sanddfs/internal/storage_service"
)

// Addressable is implemented by handles that name a remote endpoint.
type Addressable interface {
	Address() string
}

// errorMap turns a response code back into the sentinel the remote
// implementation returned.
type errorMap map[communication.SandCode]error

var (
	namingErrors = errorMap{
		communication.CodeNotFound:    ns.ErrNotFound,
		communication.CodeBadRequest:  ns.ErrInvalidArgument,
		communication.CodeConflict:    ns.ErrIllegalState,
		communication.CodeUnavailable: ns.ErrRemoteFailure,
	}
	lockErrors = errorMap{
		communication.CodeNotFound:   ns.ErrNotFound,
		communication.CodeBadRequest: ns.ErrInvalidArgument,
		communication.CodeConflict:   ns.ErrInvalidState,
	}
	storageErrors = errorMap{
		communication.CodeNotFound:   ss.ErrNotFound,
		communication.CodeOutOfRange: ss.ErrOutOfBounds,
		communication.CodeBadRequest: ns.ErrInvalidArgument,
	}
)

// call performs one round trip and returns the response body. Transport
// failures come back as communication.ErrMessageSendFailed; application
// failures as the sentinel from errs.
func call(ctx context.Context, comm communication.Communicator, to, msgType string, payload any, errs errorMap) ([]byte, error) {
	msg := communication.NewMessage(comm.Address(), msgType, payload)
	resp, err := comm.Send(ctx, to, msg)
	if err != nil {
		return nil, err
	}
	if resp.Code == communication.CodeOK {
		return resp.Body, nil
	}

	sentinel, ok := errs[resp.Code]
	if !ok {
		sentinel = ErrRemoteInternal
	}
	return nil, fmt.Errorf("%w: %s", sentinel, resp.Body)
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}
	return nil
}

func callBool(ctx context.Context, comm communication.Communicator, to, msgType string, payload any, errs errorMap) (bool, error) {
	body, err := call(ctx, comm, to, msgType, payload, errs)
	if err != nil {
		return false, err
	}
	var out communication.BoolResponse
	if err := decode(body, &out); err != nil {
		return false, err
	}
	return out.Value, nil
}
