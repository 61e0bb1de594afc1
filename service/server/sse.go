package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/copywatch/service/metrics"
	natspkg "github.com/brojonat/copywatch/service/nats"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// SignalStreamer fans signal events out to SSE and WebSocket clients.
// Each connected client gets its own ephemeral JetStream consumer, so a slow
// client never blocks the others.
type SignalStreamer struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewSignalStreamer creates a new streamer that subscribes to NATS internally.
func NewSignalStreamer(natsURL string, logger *slog.Logger) (*SignalStreamer, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("copywatch-streamer"),
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

	logger.Info("signal streamer initialized", "nats_url", natsURL)

	return &SignalStreamer{
		nc:     nc,
		js:     js,
		logger: logger,
	}, nil
}

// Close closes the NATS connection, disconnecting all stream clients.
func (s *SignalStreamer) Close() error {
	if s.nc != nil {
		s.nc.Close()
		s.logger.Info("signal streamer closed")
	}
	return nil
}

// subscribe creates an ephemeral consumer filtered to one wallet's signals
// (or all wallets for an empty address) and delivers its messages on the
// returned channel until ctx is done.
func (s *SignalStreamer) subscribe(ctx context.Context, address string) (<-chan jetstream.Msg, error) {
	cons, err := s.js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, jetstream.ConsumerConfig{
		FilterSubject: natspkg.SignalSubject(address),
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy, // Only deliver new messages after consumer creation
		// Ephemeral - will be deleted when connection closes
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	msgChan := make(chan jetstream.Msg, 10)

	go func() {
		cc, err := cons.Consume(func(msg jetstream.Msg) {
			select {
			case msgChan <- msg:
			case <-ctx.Done():
			}
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to start consuming messages", "error", err)
			close(msgChan)
			return
		}
		<-ctx.Done()
		cc.Stop()
	}()

	return msgChan, nil
}

// handleStreamSignals handles SSE streaming for swap signals.
// If the address path parameter is empty, streams all wallets.
func handleStreamSignals(streamer *SignalStreamer, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")

		walletDesc := address
		if walletDesc == "" {
			walletDesc = "all wallets"
		}

		// Set SSE headers
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		logger.DebugContext(r.Context(), "SSE client connected",
			"wallet", walletDesc,
			"remote_addr", r.RemoteAddr,
		)
		m.StreamClientConnected("sse")
		defer m.StreamClientDisconnected("sse")

		msgChan, err := streamer.subscribe(r.Context(), address)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to subscribe",
				"wallet", walletDesc,
				"error", err,
			)
			fmt.Fprintf(w, "event: error\ndata: {\"error\": \"failed to subscribe\"}\n\n")
			return
		}

		// Send initial connection event
		fmt.Fprintf(w, "event: connected\ndata: {\"wallet\":%q}\n\n", walletDesc)
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		// Keepalive comments prevent proxies from timing the stream out
		keepalive := time.NewTicker(10 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case <-keepalive.C:
				fmt.Fprintf(w, ": keepalive\n\n")
				if flusher, ok := w.(http.Flusher); ok {
					flusher.Flush()
				}

			case msg, ok := <-msgChan:
				if !ok {
					return
				}

				var event natspkg.SignalEvent
				if err := json.Unmarshal(msg.Data(), &event); err != nil {
					logger.WarnContext(r.Context(), "failed to unmarshal event", "error", err)
					msg.Ack()
					continue
				}

				data, err := json.Marshal(event)
				if err != nil {
					logger.WarnContext(r.Context(), "failed to marshal event", "error", err)
					msg.Ack()
					continue
				}

				fmt.Fprintf(w, "event: signal\ndata: %s\n\n", string(data))
				if flusher, ok := w.(http.Flusher); ok {
					flusher.Flush()
				}

				msg.Ack()
				m.RecordStreamEvent("sse")

				logger.DebugContext(r.Context(), "sent signal event",
					"wallet", event.WalletAddress,
					"signature", event.Signature,
				)

			case <-r.Context().Done():
				logger.DebugContext(r.Context(), "SSE client disconnected",
					"wallet", walletDesc,
					"remote_addr", r.RemoteAddr,
				)
				return
			}
		}
	})
}
