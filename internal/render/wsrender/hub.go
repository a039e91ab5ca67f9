// Package wsrender streams compiled batches to renderer clients over
// websockets and feeds their effect-removal reports back to the engine.
package wsrender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/fxdispatch/internal/ir"
	"github.com/roach88/fxdispatch/internal/render"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Message types on the wire.
const (
	TypeBatch         = "batch"
	TypeSound         = "sound"
	TypeEffectRemoved = "effect_removed"
)

// Removal reports that a client removed a persistent effect.
// An empty Target removes every effect of the origin.
type Removal struct {
	SceneID string      `json:"scene_id"`
	Origin  string      `json:"origin"`
	Target  ir.TokenRef `json:"target,omitempty"`
}

type outbound struct {
	Type  string        `json:"type"`
	Batch *render.Batch `json:"batch,omitempty"`
	Sound *render.Sound `json:"sound,omitempty"`
}

type inbound struct {
	Type string `json:"type"`
	Removal
}

// Option configures a Hub.
type Option func(*Hub)

// WithRemovalHandler sets the callback for effect_removed reports. It runs
// on the client's read goroutine.
func WithRemovalHandler(fn func(Removal)) Option {
	return func(h *Hub) {
		h.onRemoved = fn
	}
}

// WithLogger sets the hub logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = l
	}
}

// Hub is a render.Renderer that broadcasts to every connected client.
// A client that cannot keep up loses messages rather than stalling dispatch.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	upgrader  websocket.Upgrader
	onRemoved func(Removal)
	logger    *slog.Logger
}

var _ render.Renderer = (*Hub)(nil)

// NewHub creates a hub with no clients.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.logger.Info("renderer connected", "remote", r.RemoteAddr)

	go c.writePump()
	c.readPump()
}

func (h *Hub) Render(_ context.Context, b render.Batch) error {
	return h.broadcast(outbound{Type: TypeBatch, Batch: &b})
}

func (h *Hub) PlaySound(_ context.Context, s render.Sound) error {
	return h.broadcast(outbound{Type: TypeSound, Sound: &s})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client. Later renders fail with render.ErrClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	return nil
}

func (h *Hub) broadcast(msg outbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return render.ErrClosed
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("renderer client lagging, message dropped", "type", msg.Type)
		}
	}
	return nil
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) handle(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Warn("discarding malformed renderer message", "error", err)
		return
	}
	switch msg.Type {
	case TypeEffectRemoved:
		if msg.Origin == "" || msg.SceneID == "" {
			h.logger.Warn("effect_removed without origin or scene")
			return
		}
		if h.onRemoved != nil {
			h.onRemoved(msg.Removal)
		}
	default:
		h.logger.Debug("ignoring renderer message", "type", msg.Type)
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("renderer connection lost", "error", err)
			}
			return
		}
		c.hub.handle(data)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
