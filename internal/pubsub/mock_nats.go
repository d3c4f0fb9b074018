package pubsub

import (
	"sync"

	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
)

// MockNATSPubSub stands in for NATSPubSub when no broker is available.
// It keeps a bounded history so late subscribers can catch up, the way a
// JetStream consumer would.
type MockNATSPubSub struct {
	subject string
	local   *fanout

	mu         sync.RWMutex
	history    []Event
	maxHistory int
}

// NewMockNATSPubSub creates a mock NATS JetStream pub/sub for local development
func NewMockNATSPubSub(subject string) *MockNATSPubSub {
	if subject == "" {
		subject = DefaultSubject
	}
	logger.Info("Using mock NATS pub/sub for local development", "subject", subject)

	return &MockNATSPubSub{
		subject:    subject,
		local:      newFanout("mock-nats", 100),
		maxHistory: 1000,
	}
}

// Publish records the event and delivers it to every subscriber
func (p *MockNATSPubSub) Publish(event Event) {
	p.mu.Lock()
	p.history = append(p.history, event)
	if len(p.history) > p.maxHistory {
		p.history = p.history[len(p.history)-p.maxHistory:]
	}
	p.mu.Unlock()

	p.local.broadcast(event)
	logger.Debug("Mock NATS: Published event", "event_type", event.Type, "subject", p.subject)
}

// Subscribe creates a subscription channel for events
func (p *MockNATSPubSub) Subscribe() chan Event {
	return p.local.add()
}

// Unsubscribe removes a subscription channel
func (p *MockNATSPubSub) Unsubscribe(ch chan Event) {
	p.local.remove(ch)
}

// Recent returns up to n of the most recent events, oldest first
func (p *MockNATSPubSub) Recent(n int) []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()

	start := max(len(p.history)-n, 0)
	out := make([]Event, len(p.history)-start)
	copy(out, p.history[start:])
	return out
}

// SubscriberCount returns the number of active subscribers
func (p *MockNATSPubSub) SubscriberCount() int {
	return p.local.count()
}

// Close closes all subscriptions
func (p *MockNATSPubSub) Close() {
	logger.Info("Mock NATS: Closing all subscriptions", "active_subscriptions", p.local.count())
	p.local.closeAll()
}
