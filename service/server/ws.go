package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/copywatch/service/metrics"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is CORS-open, so the WebSocket endpoint is too.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebsocketSignals handles WebSocket streaming for swap signals.
// Each signal event is delivered as one JSON text message. If the address
// path parameter is empty, streams all wallets.
func handleWebsocketSignals(streamer *SignalStreamer, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")

		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response
			logger.Debug("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
			return
		}
		defer conn.Close()

		logger.DebugContext(r.Context(), "websocket client connected",
			"wallet", address,
			"remote_addr", r.RemoteAddr,
		)
		m.StreamClientConnected("ws")
		defer m.StreamClientDisconnected("ws")

		msgChan, err := streamer.subscribe(r.Context(), address)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to subscribe",
				"wallet", address,
				"error", err,
			)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "failed to subscribe"),
				time.Now().Add(wsWriteTimeout))
			return
		}

		// Reader goroutine: the client sends nothing we act on, but reading is
		// required to process pong frames and to notice the peer going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ping.C:
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}

			case msg, ok := <-msgChan:
				if !ok {
					return
				}

				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, msg.Data()); err != nil {
					logger.DebugContext(r.Context(), "websocket write failed",
						"wallet", address,
						"error", err,
					)
					return
				}

				msg.Ack()
				m.RecordStreamEvent("ws")

			case <-closed:
				logger.DebugContext(r.Context(), "websocket client disconnected",
					"wallet", address,
					"remote_addr", r.RemoteAddr,
				)
				return

			case <-r.Context().Done():
				return
			}
		}
	})
}
