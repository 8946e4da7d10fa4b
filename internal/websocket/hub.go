package websocket

import (
	"log"
	"sync"
)

// Hub maintains the set of active clients, keyed by user ID. A user may be
// connected from several devices at once.
type Hub struct {
	clients map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// Message is a WebSocket frame payload
type Message struct {
	UserID  string                 `json:"user_id,omitempty"`
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client registered: user=%s", client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.UserID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.send)
					if len(conns) == 0 {
						delete(h.clients, client.UserID)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("WebSocket client unregistered: user=%s", client.UserID)

		case message := <-h.broadcast:
			h.deliverToUser(message.UserID, message)
		}
	}
}

// BroadcastToUser pushes a payload to every connection of one user
func (h *Hub) BroadcastToUser(userID string, payload map[string]interface{}) {
	msgType := "event"
	if t, ok := payload["type"].(string); ok {
		msgType = t
	}
	h.deliverToUser(userID, &Message{
		UserID:  userID,
		Type:    msgType,
		Payload: payload,
	})
}

// BroadcastToUsers pushes a payload to a set of users (room fan-out)
func (h *Hub) BroadcastToUsers(userIDs []string, payload map[string]interface{}) {
	for _, userID := range userIDs {
		h.BroadcastToUser(userID, payload)
	}
}

// IsOnline reports whether a user has at least one open connection
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) deliverToUser(userID string, message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- message:
		default:
			// Slow consumer; drop the frame rather than block the hub.
		}
	}
}
