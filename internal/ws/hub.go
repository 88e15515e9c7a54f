package ws

import (
	"context"
	"sync"

	"NetGuardEngine/internal/engine"
	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/models"
)

// Hub pushes engine events and forwarded backend frames to connected
// presentation clients (the dashboard UI).
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *logger.Logger
	mu         sync.RWMutex
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan models.WSMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		log:        log,
	}
}

// Run owns the client set. It exits on context cancellation; done is closed
// on exit so register/unregister senders are never left parked against a
// stopped hub.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	h.log.Info("Presentation hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info("Presentation hub shutting down...")
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("Presentation client connected. Total: %d", total)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Broadcast queues a message for every connected client. Drops the message
// when the hub is saturated rather than blocking the caller.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	select {
	case h.broadcast <- models.WSMessage{Type: msgType, Data: data}:
	default:
		h.log.Warn("Hub broadcast buffer full, dropping %s", msgType)
	}
}

// ClientCount reports connected presentation clients, for health output.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify implements engine.EventSink: every queue lifecycle transition is
// pushed to the presentation clients as it happens.
func (h *Hub) Notify(e engine.Event) {
	h.Broadcast(string(e.Type), e)
}
