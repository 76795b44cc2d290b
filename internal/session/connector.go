//go:generate go run go.uber.org/mock/mockgen -source=connector.go -destination=../mocks/mock_connector.go -package=mocks
package session

import (
	"context"

	"github.com/Tyrowin/relaychat/internal/client"
)

// Connector is the connection a Session drives. *client.Client implements it.
type Connector interface {
	Connect(ctx context.Context) (*client.Conn, error)
	Disconnect()
	Send(sender, content string) bool
	IsConnected() bool
	Events() <-chan client.Event
}

var _ Connector = (*client.Client)(nil)
