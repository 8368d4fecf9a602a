package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Channel names clients may subscribe to.
const (
	ChannelSnapshots = "snapshots"
	ChannelAlerts    = "alerts"
	ChannelSignals   = "signals"
)

// IsValidChannel reports whether a subscription channel name is known.
func IsValidChannel(name string) bool {
	switch name {
	case ChannelSnapshots, ChannelAlerts, ChannelSignals:
		return true
	}
	return false
}

// Hub manages WebSocket connections and channel subscriptions.
type Hub struct {
	clients    map[*Client]bool
	channels   map[string]map[*Client]bool // channel -> clients
	register   chan *Client
	unregister chan *Client
	broadcast  chan *channelMessage
	mu         sync.RWMutex
	logger     *zap.Logger
}

type channelMessage struct {
	channel string
	payload []byte
}

// NewHub creates a new Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		channels:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *channelMessage, 256),
		logger:     logger,
	}
}

// Run processes hub events. Call this in a goroutine.
// Returns when context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub shutting down")
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("ws client registered", zap.String("connID", client.connID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for channel := range client.channels {
					if clients, ok := h.channels[channel]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.channels, channel)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("ws client unregistered", zap.String("connID", client.connID))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.channels[msg.channel] {
				select {
				case client.send <- msg.payload:
				default:
					// Buffer full, schedule disconnect
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// shutdown gracefully closes all client connections.
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.channels = make(map[string]map[*Client]bool)
}

// Subscribe adds a client to a channel.
func (h *Hub) Subscribe(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][client] = true
	client.channels[channel] = true

	h.logger.Debug("ws client subscribed",
		zap.String("connID", client.connID),
		zap.String("channel", channel),
	)
}

// Unsubscribe removes a client from a channel.
func (h *Hub) Unsubscribe(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.channels[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}
	delete(client.channels, channel)

	h.logger.Debug("ws client unsubscribed",
		zap.String("connID", client.connID),
		zap.String("channel", channel),
	)
}

// ActiveChannels returns all channels with at least one subscriber.
func (h *Hub) ActiveChannels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var channels []string
	for channel, clients := range h.channels {
		if len(clients) > 0 {
			channels = append(channels, channel)
		}
	}
	return channels
}

// Broadcast sends a payload to all subscribers of a channel.
func (h *Hub) Broadcast(channel string, payload []byte) {
	h.broadcast <- &channelMessage{channel: channel, payload: payload}
}
