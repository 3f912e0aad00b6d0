package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/playmatatu/pinball/internal/pinball"
)

// Authorizer reports whether token grants controller rights.
type Authorizer func(token string) bool

var clientSeq atomic.Uint64

// HandleWebSocket upgrades the request and registers the client with hub.
// A valid ?token= makes the client a controller; without one it is a
// spectator.
func HandleWebSocket(hub *Hub, authorize Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		controller := false
		if token := c.Query("token"); token != "" {
			if authorize == nil || !authorize(token) {
				c.JSON(401, gin.H{"error": "invalid token"})
				return
			}
			controller = true
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			hub:        hub,
			conn:       conn,
			id:         fmt.Sprintf("c%d", clientSeq.Add(1)),
			controller: controller,
			send:       make(chan []byte, 256),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump reads messages until the connection drops.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Unexpected close for client %s: %v", c.id, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "get_state":
		c.trySend(stateMessage(c.hub.session.Snapshot()))

	case "input":
		if !c.controller {
			c.sendError("Controller token required")
			return
		}
		var in pinball.InputEvent
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			c.sendError("Invalid input data")
			return
		}
		if err := c.hub.session.HandleInput(in); err != nil {
			c.sendError(err.Error())
		}

	default:
		c.sendError("Unknown message type")
	}
}
