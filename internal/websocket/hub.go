package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"smartbin-backend/internal/models"
)

// Hub maintains active WebSocket connections and pushes computed bin
// levels and new notifications to the dashboards that may see them.
type Hub struct {
	// Registered clients (userID -> Client)
	clients map[string]*Client

	// Outbound messages scoped to one bin
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// Message is a bin-scoped payload: only clients allowed to see the bin
// receive it.
type Message struct {
	BinID string
	Data  interface{}
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("✅ [WEBSOCKET] Client connected: %s (%s), %d total", client.UserID, client.UserRole, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.UserID]; ok {
				delete(h.clients, client.UserID)
				close(client.send)
				log.Printf("🔴 [WEBSOCKET] Client disconnected: %s, %d remaining", client.UserID, len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message.Data)
			if err != nil {
				log.Printf("❌ Failed to marshal message: %v", err)
				continue
			}

			h.mu.RLock()
			for _, client := range h.clients {
				if !client.CanSeeBin(message.BinID) {
					continue
				}
				select {
				case client.send <- data:
				default:
					// Client buffer full; drop the update rather than
					// stalling the pipeline. The next push catches up.
					log.Printf("⚠️ Client buffer full, skipping: %s", client.UserID)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastLevel pushes a computed fill level to every dashboard that can
// see the bin. Satisfies the ingestor's Broadcaster.
func (h *Hub) BroadcastLevel(binID string, levelPercent int, at time.Time) {
	h.broadcast <- &Message{
		BinID: binID,
		Data: map[string]interface{}{
			"type": "level_update",
			"data": map[string]interface{}{
				"bin":        binID,
				"trashLevel": levelPercent,
				"observedAt": at.Format(time.RFC3339),
			},
		},
	}
}

// BroadcastNotification announces a freshly created threshold
// notification.
func (h *Hub) BroadcastNotification(n models.Notification) {
	h.broadcast <- &Message{
		BinID: n.BinID,
		Data: map[string]interface{}{
			"type": "notification",
			"data": n,
		},
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}
