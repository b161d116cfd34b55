package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub maintains the set of connected clients and routes events to them.
// Clients subscribe to individual challenges; an event reaches only the
// subscribers of its challenge, so observers never burn bandwidth filtering
// other challenges' traffic client-side.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	subs    map[int64]map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		subs:    make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and every subscription, then
// closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		for id, set := range h.subs {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subs, id)
			}
		}
		close(c.send)
	}
	h.mu.Unlock()
}

// Subscribe adds a client to a challenge's subscriber set. Unknown clients
// are a no-op.
func (h *Hub) Subscribe(c *Client, challengeID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	set, ok := h.subs[challengeID]
	if !ok {
		set = make(map[*Client]struct{})
		h.subs[challengeID] = set
	}
	set[c] = struct{}{}
}

// Unsubscribe removes a client from a challenge's subscriber set.
func (h *Hub) Unsubscribe(c *Client, challengeID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[challengeID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subs, challengeID)
	}
}

// Publish delivers an event to the subscribers of its challenge. An event
// with ChallengeID zero goes to every connected client. Delivery is
// fire-and-forget: a client with a full buffer misses the frame.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "kind", ev.Kind, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.clients
	if ev.ChallengeID != 0 {
		targets = h.subs[ev.ChallengeID]
	}

	for c := range targets {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop rather than block the publisher
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients subscribed to a challenge.
func (h *Hub) SubscriberCount(challengeID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[challengeID])
}
