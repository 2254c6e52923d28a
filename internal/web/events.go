package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"recipe-planner/internal/planner"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	clientQueueLen = 8
)

// PlanEvent is pushed to websocket clients whenever the plan changes.
type PlanEvent struct {
	Type string             `json:"type"`
	Plan planner.WeeklyPlan `json:"plan"`
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans plan changes out to websocket clients. A client that falls
// behind is disconnected instead of blocking the broadcaster.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// Broadcast sends the plan to every connected client without blocking.
func (h *Hub) Broadcast(plan planner.WeeklyPlan) {
	msg, err := json.Marshal(PlanEvent{Type: "plan.updated", Plan: plan})
	if err != nil {
		h.log.Error("failed to encode plan event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("dropping slow websocket client")
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and streams events. The client is registered
// before snapshot runs, so changes saved while the snapshot loads are queued
// behind it.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, snapshot func(ctx context.Context) (PlanEvent, error)) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, clientQueueLen)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	initial, err := snapshot(r.Context())
	if err != nil {
		h.log.Error("failed to load plan snapshot", zap.Error(err))
		h.remove(c)
		conn.Close()
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(initial); err != nil {
		h.remove(c)
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) removeLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

// readPump discards client messages and notices disconnects.
func (h *Hub) readPump(c *hubClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
