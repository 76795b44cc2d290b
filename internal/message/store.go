package message

import (
	"sync"

	"github.com/samber/lo"
)

// Store is the append-only log of messages for the lifetime of the process.
// The backing slice never leaves the Store: readers always get copies.
type Store struct {
	mu       sync.RWMutex
	messages []Message
}

func NewStore() *Store {
	return &Store{}
}

// Append adds the message at the end of the log and returns it.
func (s *Store) Append(m Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, m)
	return m
}

// All returns a snapshot of the log in insertion order.
func (s *Store) All() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]Message, len(s.messages))
	copy(snapshot, s.messages)
	return snapshot
}

// ByID looks a message up by id. A miss is reported through the boolean.
func (s *Store) ByID(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Find(s.messages, func(m Message) bool {
		return m.ID == id
	})
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.messages)
}

// Clear empties the log. Only tests call it.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
}
