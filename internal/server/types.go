// Package server defines connection state and helpers shared by the hub and
// its clients.
package server

import (
	"strings"

	"github.com/Tyrowin/relaychat/internal/protocol"
)

// ConnState is the lifecycle of a server-side connection:
// PENDING → OPEN → CLOSED. CLOSED is terminal.
type ConnState int32

const (
	StatePending ConnState = iota
	StateOpen
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// inbound is a publish request received from one connection.
type inbound struct {
	from    *Client
	publish protocol.Publish
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
