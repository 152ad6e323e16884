package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Arnaud58/LlamaKeeper/pkg/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stream is broadcast-only story telemetry; origin checks are the
	// deployment's concern.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait      = 10 * time.Second
	clientSendSize = 32
)

// storyHub fans story events out to connected websocket clients.
type storyHub struct {
	mu      sync.RWMutex
	clients map[*storyClient]struct{}
}

type storyClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newStoryHub() *storyHub {
	return &storyHub{
		clients: make(map[*storyClient]struct{}),
	}
}

// broadcastEvent serializes a bus event and queues it for every client.
//
// A full client queue drops the event for that client rather than blocking
// the publisher.
func (h *storyHub) broadcastEvent(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (h *storyHub) add(client *storyClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *storyHub) remove(client *storyClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// handleWebSocket upgrades the connection and streams story events until the
// client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}

	client := &storyClient{
		conn: conn,
		send: make(chan []byte, clientSendSize),
	}
	s.hub.add(client)

	go client.writePump()
	go client.readPump(s.hub)
}

// writePump drains the send queue onto the connection.
func (c *storyClient) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump discards inbound frames and tears the client down on disconnect.
func (c *storyClient) readPump(hub *storyHub) {
	defer func() {
		// Remove before closing the queue so no broadcast can write to a
		// closed channel.
		hub.remove(c)
		close(c.send)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
