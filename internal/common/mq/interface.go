package mq

import (
	"context"
	"time"
)

// Producer publishes messages to a topic.
// The compiler service only emits events; consumers live in other services.
type Producer interface {
	Publish(ctx context.Context, topic string, message *Message) error

	Close() error
}

// Message is a transport-neutral event.
type Message struct {
	// ID doubles as the partition key.
	ID        string            `json:"id"`
	Body      []byte            `json:"body"`
	Headers   map[string]string `json:"headers"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(body []byte) *Message {
	return &Message{
		Body:      body,
		Headers:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// SetHeader sets a message header
func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}
