package communication

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// wireMessage is the JSON form of a Message shared by every transport.
type wireMessage struct {
	ID      string          `json:"id"`
	From    string          `json:"from"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func EncodeMessage(msg Message) ([]byte, error) {
	wm := wireMessage{ID: msg.ID, From: msg.From, Type: msg.Type}
	if msg.Payload != nil {
		payload, err := json.Marshal(msg.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPayloadMarshalFailed, err)
		}
		wm.Payload = payload
	}
	return json.Marshal(wm)
}

// PayloadRegistry maps message types to the Go type their payload decodes
// into on the receiving side.
type PayloadRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

func NewPayloadRegistry() *PayloadRegistry {
	return &PayloadRegistry{types: make(map[string]reflect.Type)}
}

func (r *PayloadRegistry) Register(msgType string, payloadType reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[msgType] = payloadType
}

// Decode parses an encoded message. Unregistered message types fail with
// ErrUnknownMessage.
func (r *PayloadRegistry) Decode(raw []byte) (Message, error) {
	var wm wireMessage
	if err := json.Unmarshal(raw, &wm); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrPayloadUnmarshalFailed, err)
	}
	msg := Message{ID: wm.ID, From: wm.From, Type: wm.Type}

	r.mu.RLock()
	payloadType, ok := r.types[wm.Type]
	r.mu.RUnlock()
	if !ok {
		return msg, fmt.Errorf("%w: %q", ErrUnknownMessage, wm.Type)
	}

	payload := reflect.New(payloadType)
	if len(wm.Payload) > 0 {
		if err := json.Unmarshal(wm.Payload, payload.Interface()); err != nil {
			return msg, fmt.Errorf("%w: %w", ErrPayloadUnmarshalFailed, err)
		}
	}
	msg.Payload = payload.Elem().Interface()
	return msg, nil
}
