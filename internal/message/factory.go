package message

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Factory turns a (sender, content) pair into a stored Message.
type Factory struct {
	store *Store
	now   func() time.Time
	newID func() string

	mu   sync.Mutex
	last int64
}

type FactoryOption func(*Factory)

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		f.now = now
	}
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(newID func() string) FactoryOption {
	return func(f *Factory) {
		f.newID = newID
	}
}

func NewFactory(store *Store, opts ...FactoryOption) *Factory {
	f := &Factory{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create stamps a fresh id and the current server time, appends the message
// to the store exactly once and returns it. Inputs are not validated here.
//
// Timestamps never go backwards relative to append order: if the clock steps
// back, the previous timestamp is reused.
func (f *Factory) Create(sender, content string) Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	ts := f.now().UnixMilli()
	if ts < f.last {
		ts = f.last
	}
	f.last = ts

	return f.store.Append(Message{
		ID:        f.newID(),
		Sender:    sender,
		Content:   content,
		Timestamp: ts,
	})
}
