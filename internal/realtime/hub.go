// internal/realtime/hub.go

package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Hub owns the presence registry and dispatches events to live
// connections. It is created explicitly at startup and torn down on
// shutdown; there is no package-level connection state.
type Hub struct {
	presence *Presence

	register   chan *Client
	unregister chan *Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub with an empty presence registry
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		presence:   NewPresence(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run processes register/unregister events until Shutdown
func (h *Hub) Run() {
	h.wg.Add(1)
	defer h.wg.Done()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			h.cleanup()
			return
		}
	}
}

// Register hands a new client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) registerClient(client *Client) {
	// One connection per user: a reconnect evicts the old one
	if old := h.presence.Register(client.userID, client); old != nil {
		old.Close()
	}

	activeConnections.Set(float64(h.presence.Count()))
	log.Printf("User %d connected. Active connections: %d", client.userID, h.presence.Count())
}

func (h *Hub) unregisterClient(client *Client) {
	if h.presence.Unregister(client.userID, client) {
		client.Close()
		activeConnections.Set(float64(h.presence.Count()))
		log.Printf("User %d disconnected. Active connections: %d", client.userID, h.presence.Count())
	}
}

// Notify pushes an event to the user's live connection. Offline users
// are skipped: there is no queue, no retry, no persistence. A client
// whose send buffer is full is treated as dead and evicted.
func (h *Hub) Notify(userID int64, event Event) {
	client := h.presence.Lookup(userID)
	if client == nil {
		eventsDropped.Inc()
		return
	}

	data, err := json.Marshal(envelope{Data: event})
	if err != nil {
		log.Printf("Error marshalling event for user %d: %v", userID, err)
		eventsDropped.Inc()
		return
	}

	select {
	case client.send <- data:
		eventsDelivered.Inc()
	default:
		eventsDropped.Inc()
		go func() { h.unregister <- client }()
	}
}

// IsUserOnline reports whether the user has a live connection
func (h *Hub) IsUserOnline(userID int64) bool {
	return h.presence.Lookup(userID) != nil
}

// ActiveConnections returns the number of live connections
func (h *Hub) ActiveConnections() int {
	return h.presence.Count()
}

// Shutdown stops the run loop and closes every connection
func (h *Hub) Shutdown() {
	h.cancel()
	h.wg.Wait()
}

func (h *Hub) cleanup() {
	for _, client := range h.presence.drain() {
		client.Close()
	}
	activeConnections.Set(0)
}
