package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/copywatch/service/metrics"
	"github.com/brojonat/copywatch/service/monitor"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher defines the interface for publishing swap signals to NATS.
// It satisfies monitor.SignalSink, so a publisher can be registered directly
// on a Monitor.
type Publisher interface {
	// PublishSignal publishes a single signal event to JetStream on the
	// subject "signals.{wallet_address}".
	PublishSignal(ctx context.Context, sig *monitor.Signal) error

	// Close closes the connection to NATS.
	Close() error
}

// JetStreamPublisher publishes swap signals to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	logger  *slog.Logger
	metrics *metrics.Metrics
}

const (
	// StreamName is the name of the JetStream stream for swap signals.
	StreamName = "SIGNALS"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "signals.*"

	// StreamRetention is how long signal events are retained.
	StreamRetention = 30 * 24 * time.Hour
)

// SignalSubject returns the JetStream subject for a wallet's signals.
// An empty address returns the wildcard subject covering all wallets.
func SignalSubject(address string) string {
	if address == "" {
		return StreamSubjects
	}
	return fmt.Sprintf("signals.%s", address)
}

// NewPublisher creates a new JetStream publisher.
// It connects to NATS and ensures the stream exists.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("copywatch-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:      nc,
		js:      js,
		logger:  logger,
		metrics: m,
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := p.js.Stream(ctx, StreamName)
	if err == nil {
		info, err := stream.Info(ctx)
		if err == nil {
			p.logger.Debug("JetStream stream already exists",
				"stream", StreamName,
				"messages", info.State.Msgs,
			)
		}
		return nil
	}

	p.logger.Info("creating JetStream stream", "stream", StreamName)

	streamConfig := jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Swap signals from watched Solana wallets",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	}

	_, err = p.js.CreateStream(ctx, streamConfig)
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.logger.Info("JetStream stream created successfully", "stream", StreamName)
	return nil
}

// PublishSignal publishes a single signal event.
func (p *JetStreamPublisher) PublishSignal(ctx context.Context, sig *monitor.Signal) error {
	event := FromSignal(sig)
	subject := SignalSubject(event.WalletAddress)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal signal event: %w", err)
	}

	start := time.Now()
	_, err = p.js.Publish(ctx, subject, data)
	duration := time.Since(start).Seconds()

	if err != nil {
		p.metrics.RecordNATSPublish("error", duration)
		return fmt.Errorf("failed to publish signal: %w", err)
	}
	p.metrics.RecordNATSPublish("success", duration)

	p.logger.Debug("published signal event",
		"subject", subject,
		"signature", event.Signature,
		"direction", event.Direction,
	)

	return nil
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}
