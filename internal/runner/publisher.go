package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/attestbot/internal/config"
)

// AttestedEvent is published after each successful attestation so
// downstream consumers (notifiers, dashboards) can react without polling
// the ledger.
type AttestedEvent struct {
	RunID        string    `json:"run_id"`
	Principal    string    `json:"principal"`
	Domain       string    `json:"domain"`
	Repository   string    `json:"repository"`
	CommitSHA    string    `json:"commit_sha"`
	CommitURL    string    `json:"commit_url,omitempty"`
	RecordID     string    `json:"record_id"`
	SettlementID string    `json:"settlement_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher emits attestation events. The run loop treats publish
// failures as log-worthy, never pass-fatal.
type Publisher interface {
	PublishAttested(ctx context.Context, event AttestedEvent) error
	Close()
}

// NoopPublisher is the default when event publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishAttested(context.Context, AttestedEvent) error { return nil }
func (NoopPublisher) Close()                                               {}

// NATSPublisher publishes attestation events to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	stream  string
}

// NewNATSPublisher connects to NATS and ensures the target stream exists.
func NewNATSPublisher(cfg config.NATSConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &NATSPublisher{conn: conn, js: js, subject: cfg.Subject, stream: cfg.Stream}
	if err := p.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("NATS publisher initialized",
		slog.String("url", cfg.URL),
		slog.String("subject", cfg.Subject),
		slog.String("stream", cfg.Stream))
	return p, nil
}

func (p *NATSPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, p.stream); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        p.stream,
		Description: "Attestation events",
		Subjects:    []string{p.subject},
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishAttested publishes one event to the configured subject.
func (p *NATSPublisher) PublishAttested(ctx context.Context, event AttestedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("Published attestation event",
		slog.String("commit_sha", event.CommitSHA),
		slog.String("repository", event.Repository))
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	p.conn.Close()
}
