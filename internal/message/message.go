// Package message holds the chat message model, the in-memory log that
// stores it and the factory that stamps new entries.
package message

import "time"

// Message is an immutable chat entry once created by the Factory.
type Message struct {
	ID        string `json:"id" validate:"required"`
	Sender    string `json:"sender" validate:"required"`
	Content   string `json:"content" validate:"required"`
	Timestamp int64  `json:"timestamp" validate:"gte=0"` // epoch milliseconds
}

// Time returns the server timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}
