package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_Append_KeepsInsertionOrder(t *testing.T) {
	req := require.New(t)
	store := NewStore()

	// Given three messages appended one after the other
	first := store.Append(Message{ID: "1", Sender: "alice", Content: "one", Timestamp: 10})
	store.Append(Message{ID: "2", Sender: "bob", Content: "two", Timestamp: 10})
	store.Append(Message{ID: "3", Sender: "clara", Content: "three", Timestamp: 11})

	// Then the log returns them in append order
	req.Equal("1", first.ID)
	all := store.All()
	req.Len(all, 3)
	req.Equal([]string{"1", "2", "3"}, []string{all[0].ID, all[1].ID, all[2].ID})
	req.Equal(3, store.Len())
}

func TestStore_All_ReturnsSnapshot(t *testing.T) {
	req := require.New(t)
	store := NewStore()
	store.Append(Message{ID: "1", Sender: "alice", Content: "hello"})

	// When the caller mutates the returned slice
	snapshot := store.All()
	snapshot[0].Content = "tampered"
	_ = append(snapshot, Message{ID: "2"})

	// Then the stored log is untouched
	all := store.All()
	req.Len(all, 1)
	req.Equal("hello", all[0].Content)
}

func TestStore_All_EmptyLog(t *testing.T) {
	req := require.New(t)
	store := NewStore()

	all := store.All()
	req.NotNil(all)
	req.Empty(all)
}

func TestStore_ByID(t *testing.T) {
	req := require.New(t)
	store := NewStore()
	store.Append(Message{ID: "a", Sender: "alice", Content: "first"})
	store.Append(Message{ID: "b", Sender: "bob", Content: "second"})

	found, ok := store.ByID("b")
	req.True(ok)
	req.Equal("second", found.Content)

	// A miss is an absent value, not an error
	missing, ok := store.ByID("unknown")
	req.False(ok)
	req.Equal(Message{}, missing)
}

func TestStore_Clear(t *testing.T) {
	req := require.New(t)
	store := NewStore()
	store.Append(Message{ID: "a"})
	store.Append(Message{ID: "b"})

	store.Clear()

	req.Zero(store.Len())
	req.Empty(store.All())
	_, ok := store.ByID("a")
	req.False(ok)
}
