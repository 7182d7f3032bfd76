package websocket

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans journal events out to every connected client of an owner.
type Hub struct {
	clients    map[string]map[*Client]bool
	mu         sync.RWMutex
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop ends Run and closes every client's send channel. Calling it again
// is a no-op.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Done is closed once the hub has been stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Add hands client to the running hub. It reports false without blocking
// when the hub has already stopped.
func (h *Hub) Add(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.OwnerID]; !ok {
		h.clients[client.OwnerID] = make(map[*Client]bool)
	}
	h.clients[client.OwnerID][client] = true
	h.logger.Debug("websocket client registered", zap.String("owner_id", client.OwnerID))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ownerClients, ok := h.clients[client.OwnerID]; ok {
		if _, ok := ownerClients[client]; ok {
			delete(ownerClients, client)
			close(client.send)
			if len(ownerClients) == 0 {
				delete(h.clients, client.OwnerID)
			}
			h.logger.Debug("websocket client unregistered", zap.String("owner_id", client.OwnerID))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ownerID, ownerClients := range h.clients {
		for client := range ownerClients {
			close(client.send)
		}
		delete(h.clients, ownerID)
	}
}

func (h *Hub) ClientCount(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[ownerID])
}

func (h *Hub) PublishEvent(ownerID string, eventData []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if ownerClients, ok := h.clients[ownerID]; ok {
		for client := range ownerClients {
			select {
			case client.send <- eventData:
			default:
				h.logger.Warn("websocket send buffer full, dropping message", zap.String("owner_id", ownerID))
			}
		}
	}
}
