// Package websocket provides WebSocket connection management and booking event broadcasting.
package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// outbound is a message queued for broadcast, scoped to a category.
// An empty category reaches every client.
type outbound struct {
	category string
	data     []byte
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Messages waiting to be fanned out
	broadcast chan outbound

	register   chan *Client
	unregister chan *Client

	mu  sync.RWMutex
	log *zap.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run starts the hub's main event loop and returns when ctx is done.
// This should be called in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("websocket client connected", zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("websocket client disconnected", zap.Int("total", total))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.Wants(msg.category) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// send buffer full, drop the client
					client.closeSend()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for clients subscribed to category.
func (h *Hub) Broadcast(category string, message []byte) {
	select {
	case h.broadcast <- outbound{category: category, data: message}:
	default:
		h.log.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client represents a WebSocket client connection.
type Client struct {
	hub  *Hub
	send chan []byte

	mu         sync.RWMutex
	categories map[string]bool
	closed     bool
}

// NewClient creates a new WebSocket client subscribed to all categories.
func NewClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
}

// Send returns the send channel for the client.
func (c *Client) Send() chan []byte {
	return c.send
}

// Subscribe limits the client to the given categories. An empty list restores all.
func (c *Client) Subscribe(categories []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(categories) == 0 {
		c.categories = nil
		return
	}
	c.categories = make(map[string]bool, len(categories))
	for _, cat := range categories {
		c.categories[cat] = true
	}
}

// Wants reports whether a message for category should reach the client.
func (c *Client) Wants(category string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return category == "" || c.categories == nil || c.categories[category]
}

// Reply queues a direct response to this client. It is dropped when the
// send buffer is full or the client is already closed.
func (c *Client) Reply(data []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// closeSend closes the send channel once. Only the hub calls it.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
