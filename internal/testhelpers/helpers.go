// Package testhelpers provides common utilities shared by the relay's
// package tests: a running relay behind httptest, WebSocket dial helpers,
// and a frame reader that understands batched messages.
package testhelpers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/relaychat/internal/message"
	"github.com/Tyrowin/relaychat/internal/protocol"
	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// Env holds settings tests may override from the environment.
type Env struct {
	Origin      string        `envconfig:"TEST_ORIGIN" default:"http://localhost:8080"`
	ReadTimeout time.Duration `envconfig:"TEST_READ_TIMEOUT" default:"2s"`
}

// LoadEnv reads Env, failing the test on malformed values.
func LoadEnv(t *testing.T) Env {
	t.Helper()
	var env Env
	require.NoError(t, envconfig.Process("", &env))
	return env
}

// Logger returns a debug logger for tests.
func Logger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

// Relay is a hub, its store and an HTTP server serving the relay routes.
type Relay struct {
	Store  *message.Store
	Hub    *server.Hub
	Server *httptest.Server
}

// StartRelay runs a complete relay for the duration of the test.
func StartRelay(t *testing.T, cfg server.Config, opts ...server.HubOption) *Relay {
	t.Helper()

	log := Logger()
	store := message.NewStore()
	hub := server.NewHub(message.NewFactory(store), log, opts...)
	go hub.Run()

	handlers := server.NewHandlers(cfg, hub, store, log)
	ts := httptest.NewServer(server.SetupRoutes(handlers))

	t.Cleanup(func() {
		_ = hub.Shutdown(2 * time.Second)
		ts.Close()
	})

	return &Relay{Store: store, Hub: hub, Server: ts}
}

// WebSocketURL returns the ws:// address of the relay's /ws endpoint.
func (r *Relay) WebSocketURL() string {
	return WebSocketURL(r.Server.URL)
}

// WebSocketURL converts an httptest URL to the /ws endpoint.
func WebSocketURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
}

// ConnectWebSocket dials url with the configured test origin.
func ConnectWebSocket(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, err := DialWebSocket(url, LoadEnv(t).Origin)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// DialWebSocket dials url with the given Origin header; an empty origin
// sends no header.
func DialWebSocket(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendPublish writes a publish frame.
func SendPublish(t *testing.T, conn *websocket.Conn, sender, content string) {
	t.Helper()
	frame, err := protocol.Encode(protocol.Publish{Sender: sender, Content: content})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// FrameReader reads frames one at a time from a connection whose messages
// may carry several newline-separated frames.
type FrameReader struct {
	conn    *websocket.Conn
	pending [][]byte
}

// NewFrameReader wraps conn.
func NewFrameReader(conn *websocket.Conn) *FrameReader {
	return &FrameReader{conn: conn}
}

// Next returns the next decoded event, waiting at most timeout.
func (r *FrameReader) Next(timeout time.Duration) (protocol.Event, error) {
	for len(r.pending) == 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
		_, payload, err := r.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		r.pending = protocol.SplitBatch(payload)
	}

	raw := r.pending[0]
	r.pending = r.pending[1:]
	return protocol.Decode(raw)
}

// NextMessage returns the next message-created event or fails the test.
func (r *FrameReader) NextMessage(t *testing.T) message.Message {
	t.Helper()
	evt, err := r.Next(LoadEnv(t).ReadTimeout)
	require.NoError(t, err)
	created, ok := evt.(protocol.MessageCreated)
	require.Truef(t, ok, "expected %s, got %s", protocol.EventMessageCreated, evt.EventName())
	return created.Message
}

// ExpectSilence fails the test if a frame arrives within wait.
func (r *FrameReader) ExpectSilence(t *testing.T, wait time.Duration) {
	t.Helper()
	require.Empty(t, r.pending)
	evt, err := r.Next(wait)
	require.Errorf(t, err, "unexpected frame %v", evt)
}

// MakeRequest executes an HTTP request with a 5 second timeout.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// Eventually polls cond until it holds or the timeout expires.
func Eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}
