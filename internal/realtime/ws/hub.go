package ws

import (
	"sync"

	"github.com/mcoot/quizcore/internal/model"
)

// hub indexes live clients by connection ID
type hub struct {
	mu      sync.RWMutex
	clients map[model.ConnectionID]*Client
}

func newHub() *hub {
	return &hub{clients: make(map[model.ConnectionID]*Client)}
}

func (h *hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

// remove deletes c only if it is still the client indexed under its ID
func (h *hub) remove(c *Client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
}

func (h *hub) get(id model.ConnectionID) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}

func (h *hub) all() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
