package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"surveyhub-backend/shared/metrics"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 32
)

var ErrNotConnected = errors.New("user has no open connections")

// PushMessage is the JSON frame dashboards receive.
type PushMessage struct {
	Type      string                 `json:"type"`
	Level     string                 `json:"level"`
	Title     string                 `json:"title,omitempty"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// client is one open dashboard. Writes go through send so a single
// goroutine owns the connection's writer.
type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// enqueue never blocks; it reports false when the client is gone or full.
func (c *client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// WebSocketManager tracks every open dashboard per user. A user may have
// several tabs open; each receives every push.
type WebSocketManager struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

// NewWebSocketManager accepts upgrades from allowedOrigins only. Requests
// without an Origin header (non-browser clients) are allowed.
func NewWebSocketManager(allowedOrigins []string, log *zap.Logger) *WebSocketManager {
	if log == nil {
		log = zap.NewNop()
	}
	allowed := map[string]bool{}
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	wsm := &WebSocketManager{
		clients: map[string]map[*client]struct{}{},
		metrics: metrics.NewMetrics(),
		log:     log.Named("websocket"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	wsm.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed[origin] {
				return true
			}
			wsm.log.Warn("websocket connection rejected", zap.String("origin", origin))
			return false
		},
	}
	return wsm
}

// Serve upgrades the request and blocks until the connection closes.
func (wsm *WebSocketManager) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := wsm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	wsm.register(c)
	defer wsm.unregister(c)

	go wsm.writePump(c)

	wsm.deliver(c, PushMessage{
		Type:    "connection",
		Level:   "info",
		Title:   "Connected",
		Message: "WebSocket connection established",
	})
	wsm.readPump(c)
	return nil
}

func (wsm *WebSocketManager) register(c *client) {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()
	if wsm.clients[c.userID] == nil {
		wsm.clients[c.userID] = map[*client]struct{}{}
	}
	wsm.clients[c.userID][c] = struct{}{}
	wsm.metrics.WebSocketOpened()
	wsm.log.Info("websocket client connected", zap.String("user_id", c.userID), zap.Int("user_connections", len(wsm.clients[c.userID])))
}

func (wsm *WebSocketManager) unregister(c *client) {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()
	conns, ok := wsm.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(wsm.clients, c.userID)
	}
	c.close()
	wsm.metrics.WebSocketClosed()
	wsm.log.Info("websocket client disconnected", zap.String("user_id", c.userID))
}

// readPump answers application pings and detects dead peers.
func (wsm *WebSocketManager) readPump(c *client) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var incoming struct {
			Type string `json:"type"`
		}
		if err := c.conn.ReadJSON(&incoming); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsm.log.Debug("websocket read failed", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
		if incoming.Type == "ping" {
			wsm.deliver(c, PushMessage{Type: "pong", Level: "info", Message: "pong"})
		}
	}
}

func (wsm *WebSocketManager) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// deliver queues msg for c, dropping it when the client is not keeping up.
func (wsm *WebSocketManager) deliver(c *client, msg PushMessage) bool {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = wsm.now()
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		wsm.log.Error("failed to encode push", zap.Error(err))
		return false
	}
	if !c.enqueue(frame) {
		wsm.log.Warn("websocket message dropped", zap.String("user_id", c.userID))
		return false
	}
	return true
}

// SendToUser pushes msg to every open connection of userID and reports how
// many accepted it.
func (wsm *WebSocketManager) SendToUser(userID string, msg PushMessage) (int, error) {
	wsm.mu.RLock()
	targets := make([]*client, 0, len(wsm.clients[userID]))
	for c := range wsm.clients[userID] {
		targets = append(targets, c)
	}
	wsm.mu.RUnlock()

	if len(targets) == 0 {
		return 0, ErrNotConnected
	}
	delivered := 0
	for _, c := range targets {
		if wsm.deliver(c, msg) {
			delivered++
		}
	}
	return delivered, nil
}

// GetConnectedUsers returns the ids of users with at least one connection.
func (wsm *WebSocketManager) GetConnectedUsers() []string {
	wsm.mu.RLock()
	defer wsm.mu.RUnlock()
	users := make([]string, 0, len(wsm.clients))
	for userID := range wsm.clients {
		users = append(users, userID)
	}
	return users
}

// GetConnectionCount returns the number of open connections.
func (wsm *WebSocketManager) GetConnectionCount() int {
	wsm.mu.RLock()
	defer wsm.mu.RUnlock()
	n := 0
	for _, conns := range wsm.clients {
		n += len(conns)
	}
	return n
}
