// Package session holds the client-side view of the chat: connection status
// and the ordered list of received messages.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/relaychat/internal/client"
	"github.com/Tyrowin/relaychat/internal/message"
)

// Status is the session's connection status.
type Status int

const (
	StatusConnecting Status = iota
	StatusReady
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusReady:
		return "ready"
	case StatusDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Session accumulates every received message in arrival order. It never
// deduplicates, reorders or truncates the list.
type Session struct {
	conn         Connector
	log          *slog.Logger
	readyTimeout time.Duration

	mu       sync.RWMutex
	status   Status
	connID   string
	messages []message.Message

	changes   chan struct{}
	rearm     chan struct{}
	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a session in the connecting state.
func New(conn Connector, log *slog.Logger, readyTimeout time.Duration) *Session {
	return &Session{
		conn:         conn,
		log:          log,
		readyTimeout: readyTimeout,
		status:       StatusConnecting,
		messages:     []message.Message{},
		changes:      make(chan struct{}, 1),
		rearm:        make(chan struct{}, 1),
		stop:         make(chan struct{}),
	}
}

// Start connects and begins consuming connection events. If no connected
// event arrives within the ready timeout the session becomes ready anyway.
func (s *Session) Start(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
	return nil
}

// Reconnect asks the connector for a connection and restarts the ready
// timeout. Messages published while disconnected are not replayed.
func (s *Session) Reconnect(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return err
	}

	select {
	case s.rearm <- struct{}{}:
	default:
	}
	return nil
}

// connect holds the lock across Connect so that events from the new handle
// are applied only once connID names it.
func (s *Session) connect(ctx context.Context) error {
	s.mu.Lock()
	conn, err := s.conn.Connect(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	if conn != nil {
		s.connID = conn.ID()
	}
	if !s.conn.IsConnected() {
		s.status = StatusConnecting
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Session) loop(ctx context.Context) {
	timer := time.NewTimer(s.readyTimeout)
	defer timer.Stop()

	events := s.conn.Events()
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			s.Apply(evt)
		case <-timer.C:
			s.readyOnTimeout()
		case <-s.rearm:
			timer.Reset(s.readyTimeout)
		}
	}
}

func (s *Session) readyOnTimeout() {
	s.mu.Lock()
	changed := s.status == StatusConnecting
	if changed {
		s.status = StatusReady
	}
	s.mu.Unlock()

	if changed {
		s.log.Warn("No connected event before timeout, enabling input anyway", "timeout", s.readyTimeout)
		s.notify()
	}
}

// Apply folds one connection event into the session. Status events from a
// connection other than the current one are ignored.
func (s *Session) Apply(evt client.Event) {
	s.mu.Lock()
	stale := evt.ConnID != "" && s.connID != "" && evt.ConnID != s.connID
	switch evt.Kind {
	case client.EventConnected:
		if !stale {
			s.status = StatusReady
		}
	case client.EventDisconnected:
		if !stale {
			s.status = StatusDisconnected
		}
	case client.EventMessageCreated:
		s.messages = append(s.messages, evt.Message)
	}
	s.mu.Unlock()

	if stale && evt.Kind != client.EventMessageCreated {
		s.log.Debug("Ignoring event from previous connection", "event", evt.Kind, "conn_id", evt.ConnID)
		return
	}
	s.notify()
}

// Send forwards a message to the connector once the session is ready. It
// never blocks and never queues.
func (s *Session) Send(sender, content string) bool {
	if s.Status() != StatusReady {
		s.log.Debug("Dropping send before ready", "status", s.Status())
		return false
	}
	return s.conn.Send(sender, content)
}

// Status returns the current connection status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Messages returns a copy of the accumulated list.
func (s *Session) Messages() []message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]message.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Changes signals after every status change or appended message. Signals
// are coalesced; readers should re-read the state.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Close stops the session and disconnects exactly once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.conn.Disconnect()
		s.wg.Wait()
	})
}
