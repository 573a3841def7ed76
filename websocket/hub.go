package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client represents one connected worker device
type Client struct {
	Hub      *Hub
	WorkerID string
	Conn     *websocket.Conn
	Send     chan []byte
}

// Message is the envelope for every frame sent to or received from a client
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// MessageHandler handles an inbound message type
type MessageHandler func(*Client, *Message) error

// Hub tracks connected workers. A worker may be connected from several
// devices at once.
type Hub struct {
	clients map[string]map[*Client]bool

	Register   chan *Client
	Unregister chan *Client

	MessageHandlers map[string]MessageHandler

	done chan struct{}
	log  *zap.Logger
	mu   sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(log *zap.Logger) *Hub {
	hub := &Hub{
		clients:         make(map[string]map[*Client]bool),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		MessageHandlers: make(map[string]MessageHandler),
		done:            make(chan struct{}),
		log:             log,
	}
	hub.MessageHandlers["ping"] = hub.handlePing
	return hub
}

// Run owns client registration until ctx is canceled, then drops every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.clients[client.WorkerID] == nil {
				h.clients[client.WorkerID] = make(map[*Client]bool)
			}
			h.clients[client.WorkerID][client] = true
			h.mu.Unlock()
			h.log.Info("worker connected", zap.String("worker", client.WorkerID))

		case client := <-h.Unregister:
			h.remove(client)
			h.log.Info("worker disconnected", zap.String("worker", client.WorkerID))

		case <-ctx.Done():
			h.mu.Lock()
			for id, set := range h.clients {
				for client := range set {
					close(client.Send)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// register hands the client to Run; it reports false once the hub stopped.
func (h *Hub) register(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.WorkerID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.WorkerID)
	}
}

// NotifyWorkers sends an event to every connected device of the given
// workers. Offline workers are skipped; they still get push notifications.
func (h *Hub) NotifyWorkers(workerIDs []string, eventType string, payload interface{}) {
	data, err := json.Marshal(&Message{Type: eventType, Data: payload, Timestamp: time.Now().UTC()})
	if err != nil {
		h.log.Error("marshal realtime event", zap.String("type", eventType), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range workerIDs {
		for client := range h.clients[id] {
			select {
			case client.Send <- data:
			default:
				h.log.Warn("send buffer full, event dropped",
					zap.String("worker", id),
					zap.String("type", eventType),
				)
			}
		}
	}
}

// ConnectedWorkers returns the ids of workers with at least one live connection
func (h *Hub) ConnectedWorkers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// IsWorkerConnected checks if a worker is currently connected
func (h *Hub) IsWorkerConnected(workerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[workerID]) > 0
}

func (h *Hub) handlePing(client *Client, _ *Message) error {
	return client.SendMessage(&Message{Type: "pong", Timestamp: time.Now().UTC()})
}
