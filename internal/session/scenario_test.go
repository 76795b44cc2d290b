package session_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/relaychat/internal/client"
	"github.com/Tyrowin/relaychat/internal/message"
	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/Tyrowin/relaychat/internal/session"
	"github.com/Tyrowin/relaychat/internal/testhelpers"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func startSession(t *testing.T, relay *testhelpers.Relay) (*session.Session, *client.Client) {
	t.Helper()
	cfg := client.NewConfig()
	cfg.ServerAddr = strings.TrimPrefix(relay.Server.URL, "http://")

	c := client.New(cfg, testhelpers.Logger())
	s := session.New(c, testhelpers.Logger(), 2*time.Second)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Close)

	testhelpers.Eventually(t, func() bool { return s.Status() == session.StatusReady })
	return s, c
}

func contents(s *session.Session) []string {
	return lo.Map(s.Messages(), func(m message.Message, _ int) string { return m.Content })
}

func TestScenario_SingleClientRoundTrip(t *testing.T) {
	req := require.New(t)
	relay := testhelpers.StartRelay(t, server.NewConfig())
	alice, _ := startSession(t, relay)

	req.True(alice.Send("alice", "  hello  "))

	testhelpers.Eventually(t, func() bool { return len(alice.Messages()) == 1 })
	req.Equal(relay.Store.All(), alice.Messages())
	req.Equal("hello", alice.Messages()[0].Content)
}

func TestScenario_SecondClientReceivesWithoutSending(t *testing.T) {
	req := require.New(t)
	relay := testhelpers.StartRelay(t, server.NewConfig())
	alice, _ := startSession(t, relay)
	bob, _ := startSession(t, relay)
	testhelpers.Eventually(t, func() bool { return relay.Hub.ClientCount() == 2 })

	req.True(alice.Send("alice", "hi bob"))

	testhelpers.Eventually(t, func() bool { return len(bob.Messages()) == 1 })
	testhelpers.Eventually(t, func() bool { return len(alice.Messages()) == 1 })
	req.Equal(alice.Messages(), bob.Messages())
	req.Equal("alice", bob.Messages()[0].Sender)
}

func TestScenario_OfflineMessageIsNotReplayed(t *testing.T) {
	req := require.New(t)
	relay := testhelpers.StartRelay(t, server.NewConfig())
	alice, _ := startSession(t, relay)
	bob, bobClient := startSession(t, relay)
	testhelpers.Eventually(t, func() bool { return relay.Hub.ClientCount() == 2 })

	// Given bob saw the first message
	req.True(alice.Send("alice", "before"))
	testhelpers.Eventually(t, func() bool { return len(bob.Messages()) == 1 })

	// When bob drops offline and alice keeps talking
	bobClient.Disconnect()
	testhelpers.Eventually(t, func() bool { return bob.Status() == session.StatusDisconnected })
	testhelpers.Eventually(t, func() bool { return relay.Hub.ClientCount() == 1 })
	req.False(bob.Send("bob", "lost"))
	req.True(alice.Send("alice", "offline"))
	testhelpers.Eventually(t, func() bool { return len(alice.Messages()) == 2 })

	// And bob reconnects before the next message
	req.NoError(bob.Reconnect(context.Background()))
	testhelpers.Eventually(t, func() bool { return bob.Status() == session.StatusReady })
	testhelpers.Eventually(t, func() bool { return relay.Hub.ClientCount() == 2 })
	req.True(alice.Send("alice", "after"))

	// Then bob has the messages from both sides of the gap and nothing in it
	testhelpers.Eventually(t, func() bool { return len(bob.Messages()) == 2 })
	testhelpers.Eventually(t, func() bool { return len(alice.Messages()) == 3 })
	req.Equal([]string{"before", "after"}, contents(bob))
	req.Equal([]string{"before", "offline", "after"}, contents(alice))
	req.Equal(3, relay.Store.Len())
}
