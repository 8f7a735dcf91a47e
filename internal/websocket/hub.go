package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains active WebSocket connections and routes published messages
// to subscribers. Admin clients receive every topic, driver clients only
// their own "driver/<email>" topic.
type Hub struct {
	// Registered clients (client ID -> Client)
	clients map[string]*Client

	// Inbound messages to fan out
	publish chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// Message represents a message published on a topic
type Message struct {
	Topic string
	Data  interface{}
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		publish:    make(chan *Message, 256),
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
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("✅ [WEBSOCKET] Client connected: %s (role: %s, total: %d)", client.Email, client.Role, h.GetClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				log.Printf("🔴 [WEBSOCKET] Client disconnected: %s (remaining: %d)", client.Email, len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.publish:
			h.deliver(message)
		}
	}
}

// deliver fans a message out to every client subscribed to its topic
func (h *Hub) deliver(message *Message) {
	data, err := json.Marshal(message.Data)
	if err != nil {
		log.Printf("❌ Failed to marshal message for topic %s: %v", message.Topic, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		if !client.Subscribed(message.Topic) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client buffer full, disconnect. Closing the connection makes
			// both pumps wind down; only the unregister path may close send,
			// the client's ReadPump can still be writing to it.
			delete(h.clients, id)
			if client.conn != nil {
				client.conn.Close()
			}
			log.Printf("⚠️ Client buffer full, disconnecting: %s", client.Email)
		}
	}
}

// Publish sends a message to every subscriber of the topic
func (h *Hub) Publish(topic string, data interface{}) {
	select {
	case h.publish <- &Message{Topic: topic, Data: data}:
	default:
		log.Printf("⚠️ Hub publish buffer full, dropping message for topic %s", topic)
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsConnected checks if any client for the given email is currently connected
func (h *Hub) IsConnected(email string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.Email == email {
			return true
		}
	}
	return false
}
