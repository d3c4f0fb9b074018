package pubsub

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
)

// DefaultStreamName is the JetStream stream holding bracket events
const DefaultStreamName = "BRACKET_EVENTS"

// DefaultSubject is the NATS subject bracket events are published on
const DefaultSubject = "playoffs.events"

type streamOptions struct {
	name    string
	subject string
	storage nats.StorageType
	maxAge  time.Duration
}

// jetStreamBus publishes events to a JetStream subject and fans messages
// received on that subject out to local subscribers.
type jetStreamBus struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string
	local   *fanout
}

func newJetStreamBus(nc *nats.Conn, opts streamOptions) (*jetStreamBus, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(opts.name); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return nil, fmt.Errorf("failed to look up stream %s: %w", opts.name, err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     opts.name,
			Subjects: []string{opts.subject},
			Storage:  opts.storage,
			MaxAge:   opts.maxAge,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
		logger.Info("JetStream stream created", "stream", opts.name, "subject", opts.subject)
	}

	bus := &jetStreamBus{
		nc:      nc,
		js:      js,
		subject: opts.subject,
		local:   newFanout("jetstream", 100),
	}

	// Only new events are fanned out; replay goes through SubscribeDurable.
	bus.sub, err = js.Subscribe(opts.subject, bus.handle, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", opts.subject, err)
	}
	logger.Debug("Subscribed to JetStream", "subject", opts.subject)

	return bus, nil
}

func (b *jetStreamBus) handle(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to unmarshal event from JetStream", "error", err)
		msg.Term()
		return
	}
	b.local.broadcast(event)
	msg.Ack()
}

// Publish publishes an event to JetStream
func (b *jetStreamBus) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return
	}
	if _, err := b.js.Publish(b.subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", b.subject, "event_type", event.Type)
		return
	}
	logger.Debug("Published event to NATS", "event_type", event.Type, "subject", b.subject)
}

// Subscribe creates a subscription channel for events
func (b *jetStreamBus) Subscribe() chan Event {
	return b.local.add()
}

// Unsubscribe removes a subscription channel
func (b *jetStreamBus) Unsubscribe(ch chan Event) {
	b.local.remove(ch)
}

// SubscribeDurable creates a durable JetStream consumer, so several instances
// can share the work of processing events and resume after a restart.
func (b *jetStreamBus) SubscribeDurable(consumerName string, handler func(Event)) error {
	_, err := b.js.Subscribe(b.subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("Failed to unmarshal event", "error", err, "consumer", consumerName)
			msg.Term()
			return
		}
		handler(event)
		msg.Ack()
	}, nats.Durable(consumerName), nats.ManualAck())
	return err
}

// SubscriberCount returns the number of active local subscribers
func (b *jetStreamBus) SubscriberCount() int {
	return b.local.count()
}

func (b *jetStreamBus) close() {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	if b.nc != nil {
		b.nc.Close()
	}
	b.local.closeAll()
}
