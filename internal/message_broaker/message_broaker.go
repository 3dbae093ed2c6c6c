package message_broaker

import "context"

// MessageBroker publishes listing outcome events. Delivery is best effort:
// callers log publish failures and carry on.
type MessageBroker interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}
