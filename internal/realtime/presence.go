// internal/realtime/presence.go

package realtime

import "sync"

// Presence maps a user id to at most one live client. A second
// registration for the same user replaces the prior mapping.
type Presence struct {
	mu      sync.RWMutex
	clients map[int64]*Client
}

// NewPresence creates an empty presence registry
func NewPresence() *Presence {
	return &Presence{
		clients: make(map[int64]*Client),
	}
}

// Register stores the client as the user's live connection and
// returns the connection it replaced, if any.
func (p *Presence) Register(userID int64, client *Client) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.clients[userID]
	p.clients[userID] = client
	return old
}

// Unregister removes the mapping for userID, but only if it still
// points at the given client. A reconnect may already have replaced
// the mapping; the stale connection's teardown must not evict it.
func (p *Presence) Unregister(userID int64, client *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, exists := p.clients[userID]
	if !exists || current != client {
		return false
	}
	delete(p.clients, userID)
	return true
}

// Lookup returns the user's live client, or nil if offline
func (p *Presence) Lookup(userID int64) *Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clients[userID]
}

// Count returns the number of live connections
func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

// drain removes and returns every registered client
func (p *Presence) drain() []*Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	clients := make([]*Client, 0, len(p.clients))
	for _, c := range p.clients {
		clients = append(clients, c)
	}
	p.clients = make(map[int64]*Client)
	return clients
}
