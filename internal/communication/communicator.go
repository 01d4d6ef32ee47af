package communication

import (
	"context"
	"reflect"

	"github.com/google/uuid"
)

type Message struct {
	ID      string
	From    string
	Type    string
	Payload any
}

func NewMessage(from, msgType string, payload any) Message {
	return Message{
		ID:      uuid.NewString(),
		From:    from,
		Type:    msgType,
		Payload: payload,
	}
}

type SandCode string

const (
	CodeOK          SandCode = "OK"
	CodeBadRequest  SandCode = "BAD_REQUEST"
	CodeNotFound    SandCode = "NOT_FOUND"
	CodeConflict    SandCode = "CONFLICT"
	CodeOutOfRange  SandCode = "OUT_OF_RANGE"
	CodeUnavailable SandCode = "UNAVAILABLE"
	CodeInternal    SandCode = "INTERNAL"
)

// Response carries the application result of a message. A non-OK Code is an
// application error and Body holds its text; transport failures are returned
// as errors by Send instead.
type Response struct {
	Code    SandCode
	Body    []byte
	Headers map[string]string
}

type Communicator interface {
	Start(handler MessageHandler) error
	Stop() error
	Send(ctx context.Context, to string, msg Message) (*Response, error)
	Address() string

	// RegisterPayloadType tells the receiving side which Go type to decode
	// the payload of msgType into.
	RegisterPayloadType(msgType string, payloadType reflect.Type)
}
