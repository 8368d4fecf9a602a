package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 * 1024

	// Send buffer size per client.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // dashboards connect cross-origin
}

// Client represents a WebSocket client connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	connID   string
	channels map[string]bool
	logger   *zap.Logger
}

// clientRequest is the inbound message format:
// {"action":"subscribe","channels":["snapshots","alerts"]}
type clientRequest struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

type clientAck struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// HandleWS upgrades the request and starts the client pumps. Channels listed
// in the "channels" query parameter are subscribed immediately.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		connID:   uuid.New().String(),
		channels: make(map[string]bool),
		logger:   h.logger,
	}

	h.register <- client

	if q := r.URL.Query().Get("channels"); q != "" {
		var subscribed []string
		for _, name := range splitChannels(q) {
			if IsValidChannel(name) {
				h.Subscribe(client, name)
				subscribed = append(subscribed, name)
			}
		}
		client.sendAck(&clientAck{Type: "subscribed", Channels: subscribed})
	}

	go client.writePump()
	go client.readPump()
}

func splitChannels(q string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(q); i++ {
		if i == len(q) || q[i] == ',' {
			if i > start {
				out = append(out, q[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed, send close message
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("websocket write error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an inbound subscribe/unsubscribe request.
func (c *Client) handleMessage(data []byte) {
	var req clientRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendAck(&clientAck{Type: "error", Error: "malformed request"})
		return
	}

	switch req.Action {
	case "subscribe":
		var subscribed []string
		for _, name := range req.Channels {
			if IsValidChannel(name) {
				c.hub.Subscribe(c, name)
				subscribed = append(subscribed, name)
			}
		}
		c.sendAck(&clientAck{Type: "subscribed", Channels: subscribed})

	case "unsubscribe":
		for _, name := range req.Channels {
			c.hub.Unsubscribe(c, name)
		}
		c.sendAck(&clientAck{Type: "unsubscribed", Channels: req.Channels})

	default:
		c.sendAck(&clientAck{Type: "error", Error: "unknown action: " + req.Action})
	}
}

func (c *Client) sendAck(ack *clientAck) {
	payload, err := json.Marshal(ack)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
