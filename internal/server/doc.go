// Package server implements the relay's HTTP and WebSocket gateway.
//
// A Hub owns every open connection and turns each accepted publish request
// into a stored message, which it then fans out to all connections. The
// implementation is split into files for configuration, hub management,
// clients, routing, and HTTP handlers.
package server
