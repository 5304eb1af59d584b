// Package websocket streams node-changed notifications to connected
// clients. The hub subscribes to the in-process event bus and fans events
// out; delivery is best-effort, matching the bus semantics.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joeleaver/pimble/application/ports"
	"go.uber.org/zap"
)

// NodeChangedMessage is the wire shape of one notification.
type NodeChangedMessage struct {
	Type      string `json:"type"`
	StoreID   string `json:"store_id"`
	NodeID    string `json:"node_id"`
	Change    string `json:"change"`
	Timestamp int64  `json:"timestamp"`
}

// Hub owns the connected clients and the event bus subscription.
type Hub struct {
	bus    ports.EventBus
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}

	upgrader websocket.Upgrader

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewHub creates a hub over the event bus.
func NewHub(bus ports.EventBus, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		bus:     bus,
		logger:  logger,
		clients: make(map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The boundary is local-first; cross-origin browsers are let in
			// and the transport carries no credentials.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Run consumes bus events until Shutdown. Call in a goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	events, cancel := h.bus.Subscribe(256)
	defer cancel()

	for {
		select {
		case <-h.stop:
			h.closeAll()
			return
		case event, ok := <-events:
			if !ok {
				h.closeAll()
				return
			}
			h.broadcast(event)
		}
	}
}

// Shutdown stops the hub and closes every connection.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// ServeWS upgrades an HTTP request into a notification stream.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	client := newClient(h, conn, h.logger)

	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("WebSocket client connected", zap.Int("clients", count))

	go client.writePump()
	go client.readPump()
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(event ports.NodeChangedEvent) {
	msg := NodeChangedMessage{
		Type:      "node_changed",
		StoreID:   event.StoreID.String(),
		NodeID:    event.NodeID.String(),
		Change:    string(event.Change),
		Timestamp: event.At.UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode notification", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.send(data)
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("WebSocket client disconnected", zap.Int("clients", count))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

// pingInterval keeps intermediaries from timing idle streams out.
const pingInterval = 30 * time.Second
