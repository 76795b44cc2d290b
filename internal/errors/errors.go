// Package errors declares the sentinel errors shared across the relay.
package errors

import "fmt"

var (
	ErrMalformedFrame = fmt.Errorf("malformed frame")
	ErrUnknownEvent   = fmt.Errorf("unknown event")
	ErrInvalidPayload = fmt.Errorf("invalid payload")
	ErrEmptyContent   = fmt.Errorf("empty content after trim")
	ErrNotConnected   = fmt.Errorf("not connected")
	ErrSendBufferFull = fmt.Errorf("send buffer full")
	ErrHubStopped     = fmt.Errorf("hub stopped")
)
