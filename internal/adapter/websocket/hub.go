package websocket

import (
	"errors"
	"sync"

	"github.com/gofiber/websocket/v2"
)

var ErrDriverOffline = errors.New("driver has no live connection")

// Hub tracks driver websocket connections so session status changes can be
// pushed to the driver app without polling. A driver may hold several
// connections (phone plus car head unit).
type Hub struct {
	// Registered clients keyed by driver ID.
	clients map[string]map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	mu sync.RWMutex
}

type Client struct {
	hub *Hub
	// The websocket connection.
	conn *websocket.Conn
	// Buffered channel of outbound messages.
	send chan []byte
	// Driver this connection belongs to.
	driverID string
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.driverID] == nil {
				h.clients[client.driverID] = make(map[*Client]bool)
			}
			h.clients[client.driverID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.driverID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.send)
					if len(conns) == 0 {
						delete(h.clients, client.driverID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// SendToDriver pushes a message to every live connection the driver holds.
// Returns ErrDriverOffline when the driver has none.
func (h *Hub) SendToDriver(driverID string, message []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[driverID]
	if !ok || len(conns) == 0 {
		return ErrDriverOffline
	}

	for client := range conns {
		select {
		case client.send <- message:
		default:
			// Slow consumer, drop the connection.
			close(client.send)
			delete(conns, client)
		}
	}
	return nil
}

func (h *Hub) AddClient(conn *websocket.Conn, driverID string) {
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), driverID: driverID}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		// Read loop keeps the connection alive and services ping/pong.
		// Drivers only receive on this hub.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush any queued messages into the same frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		}
	}
}
