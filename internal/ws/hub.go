package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/playmatatu/pinball/internal/pinball"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by middleware.WebSocketCORSCheck
	},
}

// Client represents a connected WebSocket client
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	id         string
	controller bool
	send       chan []byte
}

// Hub fans session state and game events out to every connected client.
type Hub struct {
	session    *pinball.Session
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a hub for session. Call Run before accepting connections.
func NewHub(session *pinball.Session) *Hub {
	return &Hub{
		session:    session,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run services registrations until ctx is done, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()

			log.Printf("[WS] Client %s connected (controller=%v, clients=%d)", client.id, client.controller, n)
			client.trySend(stateMessage(h.session.Snapshot()))

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
				log.Printf("[WS] Client %s disconnected (clients=%d)", client.id, len(h.clients))
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(time.Second))
				client.conn.Close()
			}
			h.mu.Unlock()
			log.Println("[WS] Hub stopped")
			return
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to every client, dropping it for clients whose
// buffer is full.
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] Send buffer full for client %s, dropping message", client.id)
		}
	}
}

// BroadcastSnapshot is a pinball.Observer.
func (h *Hub) BroadcastSnapshot(snap pinball.Snapshot) {
	h.Broadcast(stateMessage(snap))
}

// Notify relays a game event to every client. It implements
// pinball.Notifier.
func (h *Hub) Notify(ev pinball.GameEvent) {
	h.Broadcast(EventMessage{Type: "game_event", Event: ev})
}

// Message types
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// StateMessage carries a snapshot; the snapshot fields sit next to type.
type StateMessage struct {
	Type string `json:"type"`
	pinball.Snapshot
}

type EventMessage struct {
	Type  string            `json:"type"`
	Event pinball.GameEvent `json:"event"`
}

func stateMessage(snap pinball.Snapshot) StateMessage {
	return StateMessage{Type: "state", Snapshot: snap}
}

// trySend queues message without blocking.
func (c *Client) trySend(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] Send buffer full for client %s, dropping message", c.id)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.trySend(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for client %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for client %s: %v", c.id, err)
				return
			}

		case <-c.hub.done:
			return
		}
	}
}
