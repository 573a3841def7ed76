package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBufferSize = 256
)

var (
	ErrClientBufferFull = errors.New("client send buffer is full")
	ErrClientClosed     = errors.New("client connection closed")
)

// NewUpgrader accepts connections from the configured origins only. An empty
// list or "*" allows any origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowed) == 0 || allowed["*"] {
				return true
			}
			return allowed[origin]
		},
	}
}

// ServeWebSocket upgrades the request and attaches the connection to the hub
func ServeWebSocket(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, workerID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		Hub:      hub,
		WorkerID: workerID,
		Conn:     conn,
		Send:     make(chan []byte, sendBufferSize),
	}
	welcome, err := json.Marshal(&Message{
		Type:      "connected",
		Data:      map[string]string{"workerId": workerID},
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		conn.Close()
		return err
	}
	client.Send <- welcome

	if !hub.register(client) {
		conn.Close()
		return ErrClientClosed
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("websocket read error", zap.String("worker", c.WorkerID), zap.Error(err))
			}
			break
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.Hub.log.Debug("invalid websocket message", zap.String("worker", c.WorkerID), zap.Error(err))
			continue
		}
		message.Timestamp = time.Now().UTC()

		if handler, exists := c.Hub.MessageHandlers[message.Type]; exists {
			if err := handler(c, &message); err != nil {
				c.Hub.log.Warn("websocket handler failed", zap.String("type", message.Type), zap.Error(err))
			}
		} else {
			c.Hub.log.Debug("unknown websocket message type", zap.String("type", message.Type))
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues a message for this client. It fails once the hub has
// dropped the client.
func (c *Client) SendMessage(message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	if !c.Hub.clients[c.WorkerID][c] {
		return ErrClientClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrClientBufferFull
	}
}
