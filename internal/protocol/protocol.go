// Package protocol defines the frames exchanged over the socket. Every named
// event has its own payload type; frames are decoded and validated here so
// that malformed input never reaches the message factory.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "github.com/Tyrowin/relaychat/internal/errors"
	"github.com/Tyrowin/relaychat/internal/message"
	"github.com/go-playground/validator/v10"
)

// Name identifies an event on the wire.
type Name string

const (
	// EventPublish is sent by a client to create and broadcast a message.
	EventPublish Name = "message:send"
	// EventMessageCreated is fanned out by the server for every stored message.
	EventMessageCreated Name = "message:receive"
)

// Length limits in runes. The validate tags on Publish must match them.
const (
	MaxSenderLength  = 64
	MaxContentLength = 2000
)

// MaxFrameSize bounds the encoded size of any valid publish frame: a rune
// takes at most 12 bytes once JSON-escaped (a \uXXXX surrogate pair), plus
// room for the envelope.
const MaxFrameSize = 12*(MaxSenderLength+MaxContentLength) + 256

var validate = validator.New()

// Event is implemented by every payload that travels over the socket.
type Event interface {
	EventName() Name
}

// Publish asks the server to create a message.
type Publish struct {
	Sender  string `json:"sender" validate:"required,max=64"`
	Content string `json:"content" validate:"required,max=2000"`
}

func (Publish) EventName() Name { return EventPublish }

// MessageCreated carries a message committed to the server log.
type MessageCreated struct {
	message.Message
}

func (MessageCreated) EventName() Name { return EventMessageCreated }

type frame struct {
	Event Name            `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode wraps the event in a frame ready to be written to the socket.
func Encode(evt Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", evt.EventName(), err)
	}
	return json.Marshal(frame{Event: evt.EventName(), Data: data})
}

// Decode parses a single frame into its typed event.
func Decode(raw []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedFrame, err)
	}

	switch f.Event {
	case EventPublish:
		var p Publish
		if err := decodeData(f.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventMessageCreated:
		var m MessageCreated
		if err := decodeData(f.Data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "":
		return nil, fmt.Errorf("%w: missing event name", apperrors.ErrMalformedFrame)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownEvent, f.Event)
	}
}

func decodeData(data json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: missing data", apperrors.ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}
	return nil
}

// SplitBatch splits a socket message holding several newline separated
// frames. Empty lines are skipped.
func SplitBatch(payload []byte) [][]byte {
	var frames [][]byte
	for _, part := range bytes.Split(payload, []byte{'\n'}) {
		if len(bytes.TrimSpace(part)) == 0 {
			continue
		}
		frames = append(frames, part)
	}
	return frames
}
