package sse

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentflow/agentflow/internal/domain/event"
)

const clientBuffer = 100

// Client is one active event-stream connection.
type Client struct {
	ID          string
	ConnectedAt time.Time
	Events      chan event.Event
}

// Hub fans orchestration events out to connected clients. It implements
// event.Publisher: Publish never blocks, a client whose buffer is full
// misses the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger.With().Str("service", "sse").Logger(),
	}
}

// Subscribe registers a new client and returns it.
func (h *Hub) Subscribe() *Client {
	c := &Client{
		ID:          uuid.NewString(),
		ConnectedAt: time.Now().UTC(),
		Events:      make(chan event.Event, clientBuffer),
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug().Str("client_id", c.ID).Msg("sse client subscribed")
	return c
}

// Unsubscribe removes the client and closes its channel.
func (h *Hub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
	}
}

// Publish delivers the event to every connected client without blocking.
func (h *Hub) Publish(e event.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.Events <- e:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.Events)
		delete(h.clients, id)
	}
}
