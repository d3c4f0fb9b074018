package pubsub

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
)

// NATSPubSub implements pub/sub against an external NATS JetStream server
type NATSPubSub struct {
	*jetStreamBus
}

// NewNATSPubSub connects to natsURL and ensures the bracket event stream exists
func NewNATSPubSub(natsURL, subject string) (*NATSPubSub, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("nfl-playoff-predictor"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	bus, err := newJetStreamBus(nc, streamOptions{
		name:    DefaultStreamName,
		subject: subject,
		storage: nats.FileStorage,
		// Keep a season's worth of events for replay
		maxAge: 180 * 24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, err
	}

	logger.Info("Connected to NATS", "url", nc.ConnectedUrl(), "subject", subject)
	return &NATSPubSub{jetStreamBus: bus}, nil
}

// Close closes the NATS connection and all local subscriptions
func (p *NATSPubSub) Close() {
	p.close()
}
