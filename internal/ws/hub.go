// Package ws broadcasts run events to WebSocket subscribers. It complements
// the per-request SSE stream: SSE follows one run, the WebSocket feed carries
// every run on the service.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tunedock/tunedock/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is one frame on the feed: a run identifier plus its event.
type Message struct {
	Run   string         `json:"run"`
	Event pipeline.Event `json:"event"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// Hub tracks connected subscribers and fans events out to them. Slow
// subscribers are disconnected rather than allowed to block the pipeline.
type Hub struct {
	log        *slog.Logger
	clients    map[*client]bool
	broadcast  chan Message
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.Mutex
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*client]bool),
		broadcast:  make(chan Message, 1024),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run processes subscriptions and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				c.conn.Close()
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.log.Warn("slow subscriber disconnected")
					c.conn.Close()
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// HandleWS upgrades the connection and subscribes it to the feed.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan Message)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// Broadcast publishes an event without ever blocking the caller; frames are
// dropped when the feed buffer is full.
func (h *Hub) Broadcast(run string, ev pipeline.Event) {
	select {
	case h.broadcast <- Message{Run: run, Event: ev}:
	default:
		h.log.Warn("event feed full, dropping frame", "run", run)
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// readPump drains the connection so pings and close frames are processed.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
