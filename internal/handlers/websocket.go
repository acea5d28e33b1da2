package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	writeTimeout = 5 * time.Second
	// maxParallelWrites bounds the goroutines used to fan a message out to clients
	maxParallelWrites = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope for every message pushed to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// HelloMessage is sent once per connection
type HelloMessage struct {
	ClientID         string `json:"client_id"`
	ServerInstanceID string `json:"server_instance_id"` // clients use this to detect a server restart
}

// SnapshotSource provides the session state sent to newly connected clients
type SnapshotSource interface {
	Snapshot() models.SessionSnapshot
}

type wsClient struct {
	id string
	mu sync.Mutex
}

// WebSocketHandler pushes session snapshots and alerts to connected clients
type WebSocketHandler struct {
	logger           arbor.ILogger
	session          SnapshotSource
	clients          map[*websocket.Conn]*wsClient
	mu               sync.RWMutex
	serverInstanceID string

	// snapshot throttling: the newest snapshot is always delivered, intermediate ones may be skipped
	throttler    *rate.Limiter
	pendingMu    sync.Mutex
	pending      *models.SessionSnapshot
	flushPending bool
	lastVersion  uint64
}

func NewWebSocketHandler(eventService interfaces.EventService, session SnapshotSource, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		session:          session,
		clients:          make(map[*websocket.Conn]*wsClient),
		serverInstanceID: uuid.New().String(),
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized with server instance ID")

	// Nil throttler = no throttling (disabled)
	if config != nil && config.ThrottleInterval != "" {
		if duration, err := time.ParseDuration(config.ThrottleInterval); err == nil && duration > 0 {
			h.throttler = rate.NewLimiter(rate.Every(duration), 1)
			logger.Debug().
				Str("interval", config.ThrottleInterval).
				Msg("Throttler initialized for session snapshots")
		} else {
			logger.Warn().
				Err(err).
				Str("interval", config.ThrottleInterval).
				Msg("Failed to parse throttle interval - throttler disabled")
		}
	}

	if eventService != nil {
		h.SubscribeToSessionEvents(eventService)
	}

	return h
}

// SubscribeToSessionEvents forwards session updates and alerts to clients
func (h *WebSocketHandler) SubscribeToSessionEvents(eventService interfaces.EventService) {
	eventService.Subscribe(interfaces.EventSessionUpdated, func(ctx context.Context, event interfaces.Event) error {
		snapshot, ok := event.Payload.(models.SessionSnapshot)
		if !ok {
			h.logger.Warn().Msg("Invalid payload type for session_updated event")
			return nil
		}
		h.queueSnapshot(snapshot)
		return nil
	})

	eventService.Subscribe(interfaces.EventAlert, func(ctx context.Context, event interfaces.Event) error {
		alert, ok := event.Payload.(interfaces.AlertPayload)
		if !ok {
			h.logger.Warn().Msg("Invalid payload type for alert event")
			return nil
		}
		h.broadcast(WSMessage{Type: "alert", Payload: alert})
		return nil
	})
}

// queueSnapshot keeps only the newest snapshot. Events are delivered on separate
// goroutines, so an older version may arrive after a newer one and is dropped.
func (h *WebSocketHandler) queueSnapshot(snapshot models.SessionSnapshot) {
	h.pendingMu.Lock()
	if snapshot.Version <= h.lastVersion || (h.pending != nil && snapshot.Version <= h.pending.Version) {
		h.pendingMu.Unlock()
		return
	}
	h.pending = &snapshot
	if h.flushPending {
		h.pendingMu.Unlock()
		return
	}

	var delay time.Duration
	if h.throttler != nil {
		delay = h.throttler.Reserve().Delay()
	}
	if delay > 0 {
		h.flushPending = true
		h.pendingMu.Unlock()
		time.AfterFunc(delay, h.flushSnapshot)
		return
	}
	h.pendingMu.Unlock()

	h.flushSnapshot()
}

func (h *WebSocketHandler) flushSnapshot() {
	h.pendingMu.Lock()
	snapshot := h.pending
	h.pending = nil
	h.flushPending = false
	if snapshot == nil || snapshot.Version <= h.lastVersion {
		h.pendingMu.Unlock()
		return
	}
	h.lastVersion = snapshot.Version
	h.pendingMu.Unlock()

	h.broadcast(WSMessage{Type: "session", Payload: snapshot})
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &wsClient{id: uuid.New().String()}

	h.mu.Lock()
	h.clients[conn] = client
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Str("client_id", client.id).Int("clients", clientCount).Msg("WebSocket client connected")

	h.send(conn, client, WSMessage{
		Type:    "hello",
		Payload: HelloMessage{ClientID: client.id, ServerInstanceID: h.serverInstanceID},
	})
	if h.session != nil {
		h.send(conn, client, WSMessage{Type: "session", Payload: h.session.Snapshot()})
	}

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		clientCount := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Str("client_id", client.id).Int("remaining", clientCount).Msg("WebSocket client disconnected")
	}()

	// Read messages from client (keep connection alive)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *WebSocketHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, client := range h.clients {
		client.mu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		client.mu.Unlock()
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]*wsClient)
}

func (h *WebSocketHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	clients := make([]*wsClient, 0, len(h.clients))
	for conn, client := range h.clients {
		conns = append(conns, conn)
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	// A slow client only delays itself, up to its write deadline
	var g errgroup.Group
	g.SetLimit(maxParallelWrites)
	for i, conn := range conns {
		conn, client := conn, clients[i]
		g.Go(func() error {
			if err := h.write(conn, client, data); err != nil {
				h.logger.Warn().Err(err).Str("client_id", client.id).Str("type", msg.Type).Msg("Failed to send message to client")
			}
			return nil
		})
	}
	g.Wait()
}

func (h *WebSocketHandler) send(conn *websocket.Conn, client *wsClient, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}
	if err := h.write(conn, client, data); err != nil {
		h.logger.Warn().Err(err).Str("client_id", client.id).Str("type", msg.Type).Msg("Failed to send message to client")
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, client *wsClient, data []byte) error {
	client.mu.Lock()
	defer client.mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
