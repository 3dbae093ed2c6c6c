package mocks

import (
	"context"
	"sync"
)

// PublishedMessage is one call recorded by MockMessageBroker.
type PublishedMessage struct {
	RoutingKey string
	Body       []byte
}

// MockMessageBroker is a mock implementation of message_broaker.MessageBroker for testing.
type MockMessageBroker struct {
	PublishFunc func(ctx context.Context, routingKey string, body []byte) error
	CloseFunc   func() error

	mu        sync.Mutex
	Published []PublishedMessage
}

func (m *MockMessageBroker) Publish(ctx context.Context, routingKey string, body []byte) error {
	m.mu.Lock()
	m.Published = append(m.Published, PublishedMessage{RoutingKey: routingKey, Body: body})
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, routingKey, body)
	}
	return nil
}

func (m *MockMessageBroker) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
