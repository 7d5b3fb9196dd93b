package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

// DefaultQueueSize is the number of outbound frames buffered per client.
const DefaultQueueSize = 64

// Conn is the write side of a WebSocket connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one registered connection with its outbound queue.
// WritePump is the only goroutine that writes to the connection.
type Client struct {
	ID     string
	RoomID string

	conn      Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a client with a queue of queueSize frames.
func NewClient(id, roomID string, conn Conn, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Client{
		ID:     id,
		RoomID: roomID,
		conn:   conn,
		send:   make(chan []byte, queueSize),
		done:   make(chan struct{}),
	}
}

// Enqueue queues a frame without blocking. A full queue closes the client.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		c.Close()
		return false
	}
}

// Close stops the writer and closes the connection. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// WritePump drains the queue into the connection until ctx ends, the client
// is closed, or a write fails.
func (c *Client) WritePump(ctx context.Context) error {
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case data := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
		}
	}
}

// Hub indexes clients by room and fans events out to them.
type Hub struct {
	clients map[string]*Client            // clientID -> Client
	rooms   map[string]map[string]*Client // roomID -> clientID -> Client
	mu      sync.RWMutex
	logger  types.Logger
}

// NewHub creates a new Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		logger:  logger,
	}
}

// Register adds a client to the hub and its room.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if h.rooms[client.RoomID] == nil {
		h.rooms[client.RoomID] = make(map[string]*Client)
	}
	h.rooms[client.RoomID][client.ID] = client
	h.logger.Debug("Client registered", "client", client.ID, "room", client.RoomID)
}

// Unregister removes a client from the hub. Unknown ids are ignored.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return
	}
	delete(h.clients, clientID)
	if members := h.rooms[client.RoomID]; members != nil {
		delete(members, clientID)
		if len(members) == 0 {
			delete(h.rooms, client.RoomID)
		}
	}
	h.logger.Debug("Client unregistered", "client", clientID, "room", client.RoomID)
}

// Broadcast serializes event once and queues it for every client of roomID
// except excludeID. It returns the number of clients the frame was queued for.
func (h *Hub) Broadcast(roomID string, event any, excludeID string) int {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast event", "room", roomID, "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, client := range h.rooms[roomID] {
		if id == excludeID || client.Closed() {
			continue
		}
		if client.Enqueue(data) {
			delivered++
		} else {
			h.logger.Warn("Dropping slow client", "client", id, "room", roomID)
		}
	}
	return delivered
}

// Send queues event for a single client.
func (h *Hub) Send(clientID string, event any) bool {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal event", "client", clientID, "error", err)
		return false
	}

	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return client.Enqueue(data)
}

// ClientCount returns the total number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of clients registered in a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// CloseAll closes and forgets every client. It returns how many were closed.
func (h *Hub) CloseAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.clients)
	for _, client := range h.clients {
		client.Close()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
	return n
}
