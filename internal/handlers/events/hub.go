// Package events streams reconciler update batches to websocket clients.
// Unlike a poll-per-client design, one coordinator feeds every connection.
package events

import (
	"sync"

	"github.com/gofiber/fiber/v3"
	ws "github.com/saveblush/gofiber3-contrib/websocket"

	"jellybridge/internal/bridge"
)

// connWriter is the write surface of one websocket connection. *ws.Conn
// satisfies it. Websocket connections allow at most one concurrent writer,
// so every write goes through client.send.
type connWriter interface {
	WriteJSON(v any) error
	Close() error
}

type client struct {
	mu   sync.Mutex
	conn connWriter
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub fans entity-update batches out to connected websocket clients. It
// implements bridge.UpdateSink.
type Hub struct {
	mu      sync.RWMutex
	clients map[connWriter]*client

	// Snapshot provides the initial state sent to a client on connect.
	Snapshot func() []bridge.Update
}

func NewHub() *Hub {
	return &Hub{clients: make(map[connWriter]*client)}
}

// ApplyUpdates sends one batch to every client. The hub lock is held only
// while collecting clients; a failed write drops the client.
func (h *Hub) ApplyUpdates(updates []bridge.Update) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(updates); err != nil {
			h.remove(c.conn)
			c.conn.Close()
		}
	}
}

// add registers the connection and sends the initial snapshot. The client's
// write mutex keeps the snapshot from interleaving with a batch fan-out that
// sees the connection as soon as it is in the map.
func (h *Hub) add(conn connWriter) {
	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[conn] = c
	h.mu.Unlock()

	if h.Snapshot != nil {
		if err := c.send(h.Snapshot()); err != nil {
			h.remove(conn)
			conn.Close()
		}
	}
}

func (h *Hub) remove(conn connWriter) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every client connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[connWriter]*client)
}

// WS returns the Fiber handler that upgrades /events/ws connections and
// parks them in the hub until they disconnect.
func WS(h *Hub) fiber.Handler {
	return ws.New(func(conn *ws.Conn) {
		defer func() {
			h.remove(conn)
			conn.Close()
		}()

		h.add(conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	})
}

// Upgrade gates the websocket route.
func Upgrade(c fiber.Ctx) error {
	if ws.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
