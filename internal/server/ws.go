package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/takuyakubo/voice-modals/internal/transcription"
)

const (
	// Per-client buffer of undelivered transcripts. A client that falls
	// further behind starts losing results rather than stalling the pipeline.
	clientSendBuffer = 16

	writeWait = 5 * time.Second
)

// TranscriptHub broadcasts transcription results to connected WebSocket
// clients. Broadcast never blocks: a slow client silently misses results.
type TranscriptHub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	clients map[*hubClient]struct{}
	closed  bool

	// Statistics
	totalConnections uint64
	droppedMessages  uint64

	mu sync.Mutex
}

type hubClient struct {
	conn *websocket.Conn
	send chan *transcription.Result
}

// HubStats represents transcript hub statistics.
type HubStats struct {
	ActiveClients    int    `json:"active_clients"`
	TotalConnections uint64 `json:"total_connections"`
	DroppedMessages  uint64 `json:"dropped_messages"`
}

// NewTranscriptHub creates an empty hub.
func NewTranscriptHub(logger *slog.Logger) *TranscriptHub {
	return &TranscriptHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
	}
}

// HandleWS upgrades an HTTP request and registers the client for the
// transcript feed.
func (h *TranscriptHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	client := &hubClient{
		conn: conn,
		send: make(chan *transcription.Result, clientSendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[client] = struct{}{}
	h.totalConnections++
	h.mu.Unlock()

	h.logger.Info("Transcript client connected",
		slog.String("remote", r.RemoteAddr),
	)

	go h.writePump(client)
	go h.readPump(client)
}

// Broadcast sends a result to every connected client without blocking.
func (h *TranscriptHub) Broadcast(result *transcription.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- result:
		default:
			h.droppedMessages++
		}
	}
}

// Close disconnects all clients. Further Broadcast calls are no-ops.
func (h *TranscriptHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*hubClient]struct{})
}

// GetStats returns current hub statistics.
func (h *TranscriptHub) GetStats() HubStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return HubStats{
		ActiveClients:    len(h.clients),
		TotalConnections: h.totalConnections,
		DroppedMessages:  h.droppedMessages,
	}
}

// writePump serializes queued results to the connection.
func (h *TranscriptHub) writePump(client *hubClient) {
	defer client.conn.Close()

	for result := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteJSON(result); err != nil {
			h.unregister(client)
			return
		}
	}

	// Hub closed: say goodbye cleanly.
	client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	client.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
}

// readPump discards client frames and detects disconnects.
func (h *TranscriptHub) readPump(client *hubClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			h.unregister(client)
			return
		}
	}
}

func (h *TranscriptHub) unregister(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	h.logger.Info("Transcript client disconnected")
}
