package pubsub

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
)

// EmbeddedNATSPubSub runs a NATS server with JetStream in-process so
// development gets real broker semantics without external infrastructure.
type EmbeddedNATSPubSub struct {
	*jetStreamBus
	server *server.Server
}

// EmbeddedNATSOptions configures the embedded NATS server
type EmbeddedNATSOptions struct {
	Port       int    // 0 or -1 picks a random free port
	Subject    string
	StreamName string
	StoreDir   string // empty keeps JetStream in memory
}

// DefaultEmbeddedNATSOptions returns sensible defaults for development
func DefaultEmbeddedNATSOptions() EmbeddedNATSOptions {
	return EmbeddedNATSOptions{
		Port:       -1,
		Subject:    DefaultSubject,
		StreamName: DefaultStreamName,
	}
}

// NewEmbeddedNATSPubSub starts an embedded NATS server and connects to it
func NewEmbeddedNATSPubSub(opts EmbeddedNATSOptions) (*EmbeddedNATSPubSub, error) {
	port := opts.Port
	if port == 0 {
		port = -1
	}
	if opts.Subject == "" {
		opts.Subject = DefaultSubject
	}
	if opts.StreamName == "" {
		opts.StreamName = DefaultStreamName
	}

	serverOpts := &server.Options{
		Port:      port,
		JetStream: true,
		NoSigs:    true,
		StoreDir:  opts.StoreDir,
	}

	ns, err := server.NewServer(serverOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
	}
	ns.SetLogger(&natsLogger{}, false, false)

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start within timeout")
	}

	clientURL := ns.ClientURL()
	logger.Info("Embedded NATS server started", "url", clientURL)

	nc, err := nats.Connect(clientURL, nats.InProcessServer(ns))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	storage := nats.MemoryStorage
	if opts.StoreDir != "" {
		storage = nats.FileStorage
	}
	bus, err := newJetStreamBus(nc, streamOptions{
		name:    opts.StreamName,
		subject: opts.Subject,
		storage: storage,
		maxAge:  time.Hour,
	})
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, err
	}

	return &EmbeddedNATSPubSub{jetStreamBus: bus, server: ns}, nil
}

// ServerURL returns the client URL of the embedded server
func (p *EmbeddedNATSPubSub) ServerURL() string {
	return p.server.ClientURL()
}

// Close disconnects and shuts down the embedded server
func (p *EmbeddedNATSPubSub) Close() {
	logger.Info("Shutting down embedded NATS server")
	p.close()
	p.server.Shutdown()
	p.server.WaitForShutdown()
	logger.Info("Embedded NATS server shut down")
}

// natsLogger routes NATS server logs through the application logger
type natsLogger struct{}

func (l *natsLogger) Noticef(format string, v ...any) {
	logger.Info(fmt.Sprintf(format, v...), "component", "nats")
}

func (l *natsLogger) Warnf(format string, v ...any) {
	logger.Warn(fmt.Sprintf(format, v...), "component", "nats")
}

func (l *natsLogger) Fatalf(format string, v ...any) {
	logger.Error(fmt.Sprintf(format, v...), "component", "nats")
}

func (l *natsLogger) Errorf(format string, v ...any) {
	logger.Error(fmt.Sprintf(format, v...), "component", "nats")
}

func (l *natsLogger) Debugf(format string, v ...any) {
	logger.Debug(fmt.Sprintf(format, v...), "component", "nats")
}

func (l *natsLogger) Tracef(format string, v ...any) {
	logger.Debug(fmt.Sprintf(format, v...), "component", "nats", "trace", true)
}
