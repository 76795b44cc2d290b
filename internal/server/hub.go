// Package server coordinates client registration, message creation, and
// fanout for the relay via the Hub type.
package server

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Tyrowin/relaychat/internal/errors"
	"github.com/Tyrowin/relaychat/internal/message"
	"github.com/Tyrowin/relaychat/internal/moderation"
	"github.com/Tyrowin/relaychat/internal/protocol"
)

// Hub owns the set of open connections. A single Run loop serializes
// registrations and publishes, so every connection observes created
// messages in the same order they were appended to the store.
type Hub struct {
	clients    map[*Client]struct{}
	publish    chan inbound
	register   chan *Client
	unregister chan *Client
	factory    *message.Factory
	moderator  *moderation.Moderator
	log        *slog.Logger
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// HubOption configures optional hub behaviour.
type HubOption func(*Hub)

// WithModerator censors message content before it is stored. A nil
// moderator leaves content untouched.
func WithModerator(m *moderation.Moderator) HubOption {
	return func(h *Hub) {
		h.moderator = m
	}
}

// NewHub creates a hub that stores messages through factory.
func NewHub(factory *message.Factory, log *slog.Logger, opts ...HubOption) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		publish:    make(chan inbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		factory:    factory,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register hands a client to the Run loop.
func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.ctx.Done():
		return apperrors.ErrHubStopped
	}
}

// Publish submits a publish request received from a connection.
func (h *Hub) Publish(from *Client, p protocol.Publish) error {
	select {
	case h.publish <- inbound{from: from, publish: p}:
		return nil
	case <-h.ctx.Done():
		return apperrors.ErrHubStopped
	}
}

// leave is called by the read pump when its connection ends.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main event loop. It returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.removeClients([]*Client{client}, "Client unregistered")

		case in := <-h.publish:
			h.handlePublish(in)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		h.log.Warn("Received nil client registration; skipping")
		return
	}

	h.mutex.Lock()
	h.clients[client] = struct{}{}
	client.setState(StateOpen)
	clientCount := len(h.clients)
	h.mutex.Unlock()
	client.log.Info("Client registered", "total_clients", clientCount)

	if client.conn == nil {
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// handlePublish sanitizes the request, creates the message and fans the
// message-created frame out to every open connection, the sender included.
func (h *Hub) handlePublish(in inbound) {
	if in.from != nil && in.from.State() != StateOpen {
		h.log.Debug("Dropping publish from connection that is not open", "client_id", in.from.id)
		return
	}

	sender := strings.TrimSpace(in.publish.Sender)
	content := strings.TrimSpace(in.publish.Content)
	if sender == "" || content == "" {
		h.log.Debug("Dropping publish with empty sender or content", "error", apperrors.ErrEmptyContent)
		return
	}
	content = h.moderator.Censor(content)

	msg := h.factory.Create(sender, content)
	frame, err := protocol.Encode(protocol.MessageCreated{Message: msg})
	if err != nil {
		h.log.Error("Failed to encode created message", "message_id", msg.ID, "error", err)
		return
	}

	clients := h.getClientSnapshot()
	h.log.Debug("Fanning out message", "message_id", msg.ID, "recipients", len(clients))

	var failed []*Client
	for _, client := range clients {
		if !h.safeSend(client, frame) {
			failed = append(failed, client)
		}
	}
	h.removeClients(failed, "Client removed due to full send buffer")
}

func (h *Hub) safeSend(client *Client, frame []byte) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client]; !exists {
		return true
	}

	if err := client.enqueue(frame); err != nil {
		client.log.Warn("Could not queue frame", "error", err)
		return false
	}
	return true
}

// getClientSnapshot returns a thread-safe snapshot of all current clients
func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// removeClients drops clients from the registry, marks them CLOSED and
// closes their send channels. Unknown clients are ignored.
func (h *Hub) removeClients(clients []*Client, reason string) {
	if len(clients) == 0 {
		return
	}

	h.mutex.Lock()
	var removed []*Client
	for _, client := range clients {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.setState(StateClosed)
			removed = append(removed, client)
		}
	}
	clientCount := len(h.clients)
	h.mutex.Unlock()

	for _, client := range removed {
		close(client.send)
		client.log.Info(reason, "total_clients", clientCount)
	}
}

// shutdownClients closes every registered connection.
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	clients := h.getClientSnapshot()
	h.removeClients(clients, "Client closed on shutdown")

	for _, client := range clients {
		if client.conn != nil {
			client.closeConnection()
		}
	}

	h.log.Info("Closed client connections", "count", len(clients))
}

// Shutdown stops the Run loop and waits for every pump goroutine to finish,
// or for timeout to elapse. The timeout also bounds the wait for Run itself.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	h.cancel()
	select {
	case <-h.done:
	case <-deadline.C:
		h.log.Warn("Hub shutdown timeout reached before the Run loop stopped")
		return context.DeadlineExceeded
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-deadline.C:
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
