package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/doorbridge/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// Message is one recorded publish.
type Message struct {
	Topic   string
	Payload string
	At      time.Time
}

// MockClient stands in for a broker in tests. It records publishes and can
// feed inbound payloads to the configured handler.
type MockClient struct {
	mu         sync.Mutex
	published  []Message
	FailTopics map[string]bool
	handler    coremqtt.MessageHandler
	connected  bool
	ctx        context.Context
}

// NewMockClient creates a disconnected MockClient.
func NewMockClient() *MockClient {
	return &MockClient{FailTopics: make(map[string]bool)}
}

// SetHandler wires the handler inbound messages are dispatched to.
func (m *MockClient) SetHandler(h coremqtt.MessageHandler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// Connect marks the client connected.
func (m *MockClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.connected = true
	m.ctx = ctx
	m.mu.Unlock()
	return nil
}

// Disconnect marks the client disconnected.
func (m *MockClient) Disconnect() {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
}

// Publish records the message or fails if the topic is marked failing.
func (m *MockClient) Publish(topic, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return coremqtt.ErrNotConnected
	}
	if m.FailTopics[topic] {
		return fmt.Errorf("mqtt publish %s: broker rejected", topic)
	}
	m.published = append(m.published, Message{Topic: topic, Payload: payload, At: time.Now()})
	return nil
}

// Receive dispatches an inbound message to the handler, blocking like the
// real client does until the handler returns.
func (m *MockClient) Receive(topic, payload string) {
	m.mu.Lock()
	h := m.handler
	ctx := m.ctx
	m.mu.Unlock()
	if h == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h(ctx, topic, payload)
}

// Published returns a copy of the recorded publishes.
func (m *MockClient) Published() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.published))
	copy(out, m.published)
	return out
}

// PublishedOn filters recorded publishes by topic.
func (m *MockClient) PublishedOn(topic string) []Message {
	var out []Message
	for _, msg := range m.Published() {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}
