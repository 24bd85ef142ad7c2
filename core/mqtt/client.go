package mqtt

import "context"

// MessageHandler consumes one inbound message. The client invokes handlers
// one at a time in arrival order, so a handler that blocks delays every
// message behind it. ctx is the connection's lifetime context.
type MessageHandler func(ctx context.Context, topic, payload string)

// Publisher sends plain-text payloads to the broker.
type Publisher interface {
	Publish(topic, payload string) error
}

// Client is a broker connection. Inbound messages flow to the handler
// registered at construction; outbound payloads go through Publish.
type Client interface {
	Publisher

	// Connect dials the broker and establishes the command subscription
	// before any message is handled. ctx bounds the connection lifetime and
	// is propagated to message handlers.
	Connect(ctx context.Context) error

	// Disconnect closes the connection, flushing in-flight publishes.
	Disconnect()
}
