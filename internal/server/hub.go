package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/oleksShevch/websockets-chat/internal/metrics"
	"github.com/oleksShevch/websockets-chat/internal/protocol"
)

// ErrHubClosed is returned by Admit once Shutdown has started.
var ErrHubClosed = errors.New("hub is shutting down")

// Hub is the registry of live connections and the broadcast engine over it.
// The mutex guards the map and the closing flag; it is never held while
// pushing to an outbox or touching a socket. wg.Add only happens under the
// mutex with closing unset.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
	closing bool
	wg      sync.WaitGroup
	log     *slog.Logger
	metrics *metrics.Collector
}

// NewHub creates an empty hub. m may be nil.
func NewHub(log *slog.Logger, m *metrics.Collector) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*Client),
		log:     log,
		metrics: m,
	}
}

// Register inserts c under its id. Ids are fresh, so this never replaces.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetConnections(clientCount)
	h.log.Info("client registered", "client_id", c.id, "username", c.username, "addr", c.addr, "total", clientCount)
}

// Unregister removes id and reports whether it was present.
func (h *Hub) Unregister(id uuid.UUID) bool {
	h.mu.Lock()
	c, ok := h.clients[id]
	if !ok {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, id)
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetConnections(clientCount)
	h.log.Info("client unregistered", "client_id", id, "username", c.username, "addr", c.addr, "total", clientCount)
	return true
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// snapshot returns the outboxes registered at this instant.
func (h *Hub) snapshot() []*outbox {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.MapToSlice(h.clients, func(_ uuid.UUID, c *Client) *outbox {
		return c.outbox
	})
}

// Broadcast serializes msg once and enqueues it for every registered
// connection.
func (h *Hub) Broadcast(msg protocol.ChatMessage) {
	payload, err := protocol.Encode(msg)
	if err != nil {
		h.log.Error("failed to encode broadcast", "message_type", msg.MessageType, "error", err)
		return
	}
	h.BroadcastRaw(payload)
}

// BroadcastRaw enqueues payload for every registered connection and returns
// how many accepted it. An outbox closed by a concurrent disconnect is
// skipped silently.
func (h *Hub) BroadcastRaw(payload []byte) int {
	targets := h.snapshot()

	delivered := 0
	for _, box := range targets {
		if box.push(payload) {
			delivered++
		}
	}

	skipped := len(targets) - delivered
	h.metrics.Broadcast(delivered, skipped)
	h.log.Debug("broadcast", "targets", len(targets), "skipped", skipped)
	return delivered
}

// Admit activates an authenticated connection: it queues the Init and
// welcome messages for c alone, registers it, announces it to everyone and
// then starts its read and write flows. After Shutdown has started it closes
// c and returns ErrHubClosed.
func (h *Hub) Admit(c *Client) error {
	c.send(protocol.NewInit(c.username))
	c.send(protocol.WelcomeNotice(c.username))

	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		c.outbox.close()
		c.closeConnection()
		h.log.Info("refusing connection during shutdown", "username", c.username, "addr", c.addr)
		return ErrHubClosed
	}
	h.clients[c.id] = c
	clientCount := len(h.clients)
	h.wg.Add(2)
	h.mu.Unlock()

	h.metrics.SetConnections(clientCount)
	h.log.Info("client registered", "client_id", c.id, "username", c.username, "addr", c.addr, "total", clientCount)
	h.Broadcast(protocol.JoinedNotice(c.username))

	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
	return nil
}

// Shutdown closes every live connection and waits for their flows to finish,
// or until timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.mu.Lock()
	h.closing = true
	clients := lo.Values(h.clients)
	h.mu.Unlock()

	for _, client := range clients {
		client.closeConnection()
	}
	h.log.Info("closed client connections", "count", len(clients))

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some connections may still be running")
		return context.DeadlineExceeded
	}
}
