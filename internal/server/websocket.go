// Package server implements the host's serving layer: cached page reads,
// the admin API, and the live-refresh socket.
package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zot/modhost/internal/config"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Event is pushed to live-refresh subscribers when cached pages change.
type Event struct {
	Event string `json:"event"`          // "page-updated", "cache-flushed", "unit-reloaded"
	Page  string `json:"page,omitempty"` // for page-updated
	Unit  string `json:"unit,omitempty"` // for unit-reloaded
}

// Notifier manages live-refresh websocket subscribers.
type Notifier struct {
	config      *config.Config
	connections map[string]*websocket.Conn // connectionID -> conn
	mu          sync.Mutex
}

// NewNotifier creates a notifier.
func NewNotifier(cfg *config.Config) *Notifier {
	return &Notifier{
		config:      cfg,
		connections: make(map[string]*websocket.Conn),
	}
}

// HandleWebSocket upgrades a subscriber connection. The connection is
// read-drained so pings and close frames are handled; subscribers only
// receive events.
func (n *Notifier) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		n.config.Log(0, "websocket upgrade failed: %v", err)
		return
	}

	id := uuid.NewString()
	n.mu.Lock()
	n.connections[id] = conn
	n.mu.Unlock()
	n.config.Log(2, "live-refresh subscriber connected: %s", id)

	go func() {
		defer n.drop(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast pushes an event to every subscriber, dropping dead connections.
func (n *Notifier) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for id, conn := range n.connections {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			n.config.Log(2, "dropping live-refresh subscriber %s: %v", id, err)
			conn.Close()
			delete(n.connections, id)
		}
	}
}

// Count returns the number of connected subscribers.
func (n *Notifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.connections)
}

// drop removes one subscriber.
func (n *Notifier) drop(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if conn, ok := n.connections[id]; ok {
		conn.Close()
		delete(n.connections, id)
	}
	n.config.Log(2, "live-refresh subscriber disconnected: %s", id)
}
