// Package client owns the single logical connection a chat participant keeps
// to the relay. Inbound traffic and connection changes are delivered as
// Events on one channel.
package client

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/Tyrowin/relaychat/internal/errors"
	"github.com/Tyrowin/relaychat/internal/message"
	"github.com/Tyrowin/relaychat/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait          = 10 * time.Second
	eventsBufferSize   = 256
	disconnectDeadline = time.Second
)

// EventKind tells subscribers what happened.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventMessageCreated
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventMessageCreated:
		return "message-created"
	}
	return "unknown"
}

// Event is delivered on Client.Events. Message is only set for
// EventMessageCreated. ConnID names the handle that produced it.
type Event struct {
	Kind    EventKind
	ConnID  string
	Message message.Message
}

// Client owns at most one live connection at a time.
type Client struct {
	url              string
	header           http.Header
	dialer           websocket.Dialer
	handshakeTimeout time.Duration
	sendBufferSize   int
	log              *slog.Logger

	mu      sync.Mutex
	current *Conn
	events  chan Event
}

// New creates a disconnected client.
func New(cfg Config, log *slog.Logger) *Client {
	cfg = cfg.Sanitize()

	header := http.Header{}
	if cfg.Origin != "" {
		header.Set("Origin", cfg.Origin)
	}

	return &Client{
		url:              cfg.URL(),
		header:           header,
		dialer:           websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		handshakeTimeout: cfg.HandshakeTimeout,
		sendBufferSize:   cfg.SendBufferSize,
		log:              log.With("url", cfg.URL()),
		events:           make(chan Event, eventsBufferSize),
	}
}

// Events returns the channel every connection of this client reports on.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Connect returns the current handle if it is still pending or open.
// Otherwise it starts a new connection and returns without waiting for the
// handshake; EventConnected or EventDisconnected reports the outcome.
// Cancelling ctx tears the connection down.
func (c *Client) Connect(ctx context.Context) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && !c.current.IsClosed() {
		return c.current, nil
	}

	conn := newConn(c.sendBufferSize)
	c.current = conn
	go c.run(ctx, conn)
	return conn, nil
}

// Disconnect closes the active connection, if any.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.current
	c.current = nil
	c.mu.Unlock()

	if conn != nil {
		conn.close()
	}
}

// IsConnected is true once the active connection has completed its handshake
// and until it is closed.
func (c *Client) IsConnected() bool {
	conn := c.active()
	return conn != nil && conn.IsConnected()
}

// Send publishes a message. Input is trimmed; empty input and sends while not
// connected are dropped. It never blocks and reports whether the frame was
// queued.
func (c *Client) Send(sender, content string) bool {
	sender = strings.TrimSpace(sender)
	content = strings.TrimSpace(content)
	if sender == "" || content == "" {
		c.log.Debug("Dropping send", "error", apperrors.ErrEmptyContent)
		return false
	}

	conn := c.active()
	if conn == nil || !conn.IsConnected() {
		c.log.Debug("Dropping send", "error", apperrors.ErrNotConnected)
		return false
	}

	frame, err := protocol.Encode(protocol.Publish{Sender: sender, Content: content})
	if err != nil {
		c.log.Warn("Failed to encode publish", "error", err)
		return false
	}

	if err := conn.enqueue(frame); err != nil {
		c.log.Warn("Dropping send", "conn_id", conn.id, "error", err)
		return false
	}
	return true
}

func (c *Client) active() *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Client) run(ctx context.Context, conn *Conn) {
	log := c.log.With("conn_id", conn.id)

	dialCtx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
	ws, resp, err := c.dialer.DialContext(dialCtx, c.url, c.header)
	cancel()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		log.Warn("Failed to connect", "error", err)
		conn.close()
		c.emitDisconnected(conn)
		return
	}

	if !conn.attach(ws) {
		log.Debug("Connection closed during handshake")
		_ = ws.Close()
		c.emitDisconnected(conn)
		return
	}

	go func() {
		select {
		case <-ctx.Done():
			conn.close()
		case <-conn.done:
		}
	}()

	log.Info("Connected")
	c.emit(Event{Kind: EventConnected, ConnID: conn.id}, conn.done)

	go c.writePump(conn, log)
	c.readPump(conn, ws, log)

	conn.close()
	log.Info("Disconnected")
	c.emitDisconnected(conn)
}

func (c *Client) readPump(conn *Conn, ws *websocket.Conn, log *slog.Logger) {
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !conn.IsClosed() {
				log.Warn("Read failed", "error", err)
			}
			return
		}

		for _, raw := range protocol.SplitBatch(payload) {
			evt, err := protocol.Decode(raw)
			if err != nil {
				log.Warn("Dropping invalid frame", "error", err)
				continue
			}
			created, ok := evt.(protocol.MessageCreated)
			if !ok {
				log.Warn("Dropping unexpected frame", "event", evt.EventName())
				continue
			}
			c.emit(Event{Kind: EventMessageCreated, ConnID: conn.id, Message: created.Message}, conn.done)
		}
	}
}

func (c *Client) writePump(conn *Conn, log *slog.Logger) {
	for {
		select {
		case <-conn.done:
			return
		case frame := <-conn.send:
			if err := conn.write(frame); err != nil {
				log.Warn("Write failed", "error", err)
				conn.close()
				return
			}
		}
	}
}

// emit waits until the event is accepted or cancel is closed.
func (c *Client) emit(evt Event, cancel <-chan struct{}) {
	select {
	case c.events <- evt:
	case <-cancel:
	}
}

func (c *Client) emitDisconnected(conn *Conn) {
	timer := time.NewTimer(disconnectDeadline)
	defer timer.Stop()

	select {
	case c.events <- Event{Kind: EventDisconnected, ConnID: conn.id}:
	case <-timer.C:
		c.log.Warn("Dropped disconnected event", "conn_id", conn.id)
	}
}

// Conn is a handle on one transport connection. A closed handle is never
// reused; Connect creates a new one.
type Conn struct {
	id        string
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	connected atomic.Bool

	mu sync.Mutex
	ws *websocket.Conn
}

func newConn(sendBufferSize int) *Conn {
	return &Conn{
		id:   uuid.NewString(),
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// ID identifies the handle.
func (c *Conn) ID() string { return c.id }

// Done is closed when the handle is closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

// IsConnected reports whether the handshake completed and the handle is open.
func (c *Conn) IsConnected() bool { return c.connected.Load() }

// IsClosed reports whether the handle has been closed.
func (c *Conn) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// attach binds the dialed socket and marks the handle connected. It fails if
// the handle was closed meanwhile.
func (c *Conn) attach(ws *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.IsClosed() {
		return false
	}
	c.ws = ws
	c.connected.Store(true)
	return true
}

func (c *Conn) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return apperrors.ErrNotConnected
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return apperrors.ErrSendBufferFull
	}
}

// write is only called from the write pump.
func (c *Conn) write(frame []byte) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return apperrors.ErrNotConnected
	}

	if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.connected.Store(false)
		close(c.done)
		ws := c.ws
		c.mu.Unlock()
		if ws == nil {
			return
		}

		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = ws.Close()
	})
}
