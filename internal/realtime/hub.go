package realtime

import (
	"encoding/json"
	"sync"

	"focusflow/internal/logging"
)

// EventType names a change to the task collection.
type EventType string

const (
	TaskCreated   EventType = "task_created"
	TaskUpdated   EventType = "task_updated"
	TaskDeleted   EventType = "task_deleted"
	TasksImported EventType = "tasks_imported"
)

// Event is the JSON message pushed to every connected client.
type Event struct {
	Type   EventType `json:"type"`
	TaskID string    `json:"taskId,omitempty"`
	Count  int       `json:"count,omitempty"`
}

// Client is a single connection. The network side is managed by the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub keeps the connected clients and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[Client]struct{}
}

var hubInstance *Hub
var once sync.Once

// GetHub returns the process-wide hub.
func GetHub() *Hub {
	once.Do(func() {
		hubInstance = NewHub()
	})
	return hubInstance
}

func NewHub() *Hub {
	return &Hub{clients: make(map[Client]struct{})}
}

func (h *Hub) Register(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *Hub) Unregister(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends evt to every client and drops the ones whose write fails.
// It returns how many clients received the event.
func (h *Hub) Broadcast(evt Event) int {
	msg, err := json.Marshal(evt)
	if err != nil {
		logging.Logger.WithError(err).Error("failed to encode event")
		return 0
	}

	h.mu.RLock()
	var failed []Client
	sent := 0
	for c := range h.clients {
		if c.Send(msg) {
			sent++
		} else {
			failed = append(failed, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range failed {
		h.Unregister(c)
		c.Close()
	}
	return sent
}
