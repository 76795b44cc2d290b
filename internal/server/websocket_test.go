package server_test

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Tyrowin/relaychat/internal/message"
	"github.com/Tyrowin/relaychat/internal/protocol"
	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/Tyrowin/relaychat/internal/testhelpers"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestWebSocket_BroadcastReachesAllConnections(t *testing.T) {
	req := require.New(t)
	relay := testhelpers.StartRelay(t, server.NewConfig())

	// Given three connected clients
	var readers []*testhelpers.FrameReader
	var conns []*websocket.Conn
	for range 3 {
		conn := testhelpers.ConnectWebSocket(t, relay.WebSocketURL())
		conns = append(conns, conn)
		readers = append(readers, testhelpers.NewFrameReader(conn))
	}
	testhelpers.Eventually(t, func() bool { return relay.Hub.ClientCount() == 3 })

	// When the first one publishes
	testhelpers.SendPublish(t, conns[0], "alice", "hi all")

	// Then every client, the sender included, receives the stored message
	var received []message.Message
	for _, reader := range readers {
		received = append(received, reader.NextMessage(t))
	}
	stored := relay.Store.All()
	req.Len(stored, 1)
	for _, msg := range received {
		req.Equal(stored[0], msg)
	}
}

func TestWebSocket_ConcurrentPublishersSeeSameOrder(t *testing.T) {
	req := require.New(t)
	relay := testhelpers.StartRelay(t, server.NewConfig())

	alice := testhelpers.ConnectWebSocket(t, relay.WebSocketURL())
	bob := testhelpers.ConnectWebSocket(t, relay.WebSocketURL())
	testhelpers.Eventually(t, func() bool { return relay.Hub.ClientCount() == 2 })

	// When both publish concurrently
	const perSender = 20
	var wg sync.WaitGroup
	for name, conn := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perSender {
				frame := fmt.Sprintf(`{"event":"message:send","data":{"sender":%q,"content":"%d"}}`, name, i)
				_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
			}
		}()
	}
	wg.Wait()

	// Then both observe the exact append order of the store
	aliceReader := testhelpers.NewFrameReader(alice)
	bobReader := testhelpers.NewFrameReader(bob)
	var aliceIDs, bobIDs []string
	for range 2 * perSender {
		aliceIDs = append(aliceIDs, aliceReader.NextMessage(t).ID)
		bobIDs = append(bobIDs, bobReader.NextMessage(t).ID)
	}

	var storeIDs []string
	for _, msg := range relay.Store.All() {
		storeIDs = append(storeIDs, msg.ID)
	}
	req.Equal(storeIDs, aliceIDs)
	req.Equal(storeIDs, bobIDs)
}

func TestWebSocket_InvalidFramesAreDropped(t *testing.T) {
	req := require.New(t)
	relay := testhelpers.StartRelay(t, server.NewConfig())
	conn := testhelpers.ConnectWebSocket(t, relay.WebSocketURL())
	reader := testhelpers.NewFrameReader(conn)

	// When the client sends frames the server must reject
	for _, raw := range []string{
		`not json`,
		`{"event":"chat:shout","data":{"sender":"a","content":"b"}}`,
		`{"event":"message:send","data":{"sender":"a"}}`,
		`{"event":"message:receive","data":{"id":"x","sender":"a","content":"b","timestamp":1}}`,
		`{"event":"message:send","data":{"sender":"a","content":"` + strings.Repeat("x", 2001) + `"}}`,
	} {
		req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(raw)))
	}

	// Then the connection stays usable and nothing was stored
	testhelpers.SendPublish(t, conn, "alice", "valid")
	req.Equal("valid", reader.NextMessage(t).Content)
	req.Equal(1, relay.Store.Len())
}

func TestWebSocket_DefaultLimitAcceptsLargestValidContent(t *testing.T) {
	req := require.New(t)
	relay := testhelpers.StartRelay(t, server.NewConfig())
	conn := testhelpers.ConnectWebSocket(t, relay.WebSocketURL())
	reader := testhelpers.NewFrameReader(conn)

	// Given multi-byte content well within the rune limits
	wide := strings.Repeat("日", 1500)
	longest := strings.Repeat("語", protocol.MaxContentLength)
	sender := strings.Repeat("名", protocol.MaxSenderLength)

	// When both are published under the default configuration
	testhelpers.SendPublish(t, conn, "alice", wide)
	testhelpers.SendPublish(t, conn, sender, longest)

	// Then the connection stays open and both come back
	req.Equal(wide, reader.NextMessage(t).Content)
	last := reader.NextMessage(t)
	req.Equal(sender, last.Sender)
	req.Equal(longest, last.Content)
	req.Equal(2, relay.Store.Len())
	req.Equal(1, relay.Hub.ClientCount())
}

func TestWebSocket_OversizedFrameClosesConnection(t *testing.T) {
	cfg := server.NewConfig()
	cfg.MaxMessageSize = 256
	relay := testhelpers.StartRelay(t, cfg)
	conn := testhelpers.ConnectWebSocket(t, relay.WebSocketURL())
	testhelpers.Eventually(t, func() bool { return relay.Hub.ClientCount() == 1 })

	testhelpers.SendPublish(t, conn, "alice", strings.Repeat("x", 1024))

	testhelpers.Eventually(t, func() bool { return relay.Hub.ClientCount() == 0 })
	require.Zero(t, relay.Store.Len())
}

func TestWebSocket_RateLimitDropsExcessFrames(t *testing.T) {
	req := require.New(t)
	cfg := server.NewConfig()
	cfg.RateLimitBurst = 2
	cfg.RateLimitRefill = time.Hour
	relay := testhelpers.StartRelay(t, cfg)
	conn := testhelpers.ConnectWebSocket(t, relay.WebSocketURL())
	reader := testhelpers.NewFrameReader(conn)

	for i := range 5 {
		testhelpers.SendPublish(t, conn, "alice", fmt.Sprintf("m%d", i))
	}

	req.Equal("m0", reader.NextMessage(t).Content)
	req.Equal("m1", reader.NextMessage(t).Content)
	reader.ExpectSilence(t, 200*time.Millisecond)
	req.Equal(2, relay.Store.Len())
}

func TestWebSocket_OriginPolicy(t *testing.T) {
	cfg := server.NewConfig()
	cfg.AllowedOriginsRaw = "http://allowed.test"
	relay := testhelpers.StartRelay(t, cfg)

	conn, err := testhelpers.DialWebSocket(relay.WebSocketURL(), "http://allowed.test")
	require.NoError(t, err)
	require.NoError(t, testhelpers.CloseWebSocket(conn))

	_, err = testhelpers.DialWebSocket(relay.WebSocketURL(), "http://evil.test")
	require.Error(t, err)

	conn, err = testhelpers.DialWebSocket(relay.WebSocketURL(), "")
	require.NoError(t, err)
	require.NoError(t, testhelpers.CloseWebSocket(conn))
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	relay := testhelpers.StartRelay(t, server.NewConfig())
	conn := testhelpers.ConnectWebSocket(t, relay.WebSocketURL())
	testhelpers.Eventually(t, func() bool { return relay.Hub.ClientCount() == 1 })

	require.NoError(t, testhelpers.CloseWebSocket(conn))

	testhelpers.Eventually(t, func() bool { return relay.Hub.ClientCount() == 0 })
}

func TestWebSocket_ShutdownClosesConnections(t *testing.T) {
	relay := testhelpers.StartRelay(t, server.NewConfig())
	conn := testhelpers.ConnectWebSocket(t, relay.WebSocketURL())
	testhelpers.Eventually(t, func() bool { return relay.Hub.ClientCount() == 1 })

	require.NoError(t, relay.Hub.Shutdown(2*time.Second))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var netErr net.Error
	require.False(t, errors.As(err, &netErr) && netErr.Timeout(), "connection was not closed by the server")
}
