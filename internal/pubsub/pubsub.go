package pubsub

import (
	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
)

// Upstream is an interface for upstream publishers (e.g., NATS)
type Upstream interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
	Close()
}

// PubSub is the process-local event bus. SSE clients and gRPC streams
// subscribe here; with an upstream, events round-trip through the broker so
// every instance sees every bracket change.
type PubSub struct {
	local    *fanout
	upstream Upstream
	done     chan struct{}
}

// New creates a new PubSub instance
func New() *PubSub {
	return &PubSub{local: newFanout("local", 16)}
}

// NewWithUpstream creates a PubSub that bridges to an upstream publisher.
// Events from the upstream are forwarded to local subscribers.
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := &PubSub{
		local:    newFanout("local", 16),
		upstream: upstream,
		done:     make(chan struct{}),
	}

	ch := upstream.Subscribe()
	go func() {
		defer close(ps.done)
		for event := range ch {
			logger.Debug("PubSub: Received event from upstream", "type", event.Type)
			ps.local.broadcast(event)
		}
		logger.Debug("PubSub: Upstream channel closed")
	}()

	return ps
}

// Subscribe adds a new subscriber and returns a channel for receiving events
func (ps *PubSub) Subscribe() chan Event {
	return ps.local.add()
}

// Unsubscribe removes a subscriber and closes its channel
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.local.remove(ch)
}

// Publish sends an event to all subscribers, through the upstream when one is configured
func (ps *PubSub) Publish(event Event) {
	if ps.upstream != nil {
		ps.upstream.Publish(event)
		return
	}
	ps.local.broadcast(event)
}

// SubscriberCount returns the number of local subscribers
func (ps *PubSub) SubscriberCount() int {
	return ps.local.count()
}

// Close shuts down the upstream and closes every local subscriber
func (ps *PubSub) Close() {
	if ps.upstream != nil {
		ps.upstream.Close()
		<-ps.done
	}
	ps.local.closeAll()
}
