package presence

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/mcoot/quizcore/internal/dependencies/clock"
	"github.com/mcoot/quizcore/internal/model"
)

// subscriptionLimit bounds the undelivered changes a subscription holds.
// Past it the oldest are discarded; every change carries the full post-state
// so the subscriber still converges on the latest snapshot.
const subscriptionLimit = 1024

type entry struct {
	presence model.Presence
	seq      uint64
}

// Registry is the in-memory record of which identities hold a live
// connection. A username is bound to at most one connection at a time.
// All mutations are serialized behind a single mutex.
type Registry struct {
	clock  clock.Clock
	logger *slog.Logger

	mu          sync.Mutex
	entries     map[model.ConnectionID]*entry
	byUsername  map[string]model.ConnectionID
	seq         uint64
	changeSeq   uint64
	subscribers []*Subscription
}

// NewRegistry creates an empty Registry
func NewRegistry(clock clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		clock:      clock,
		logger:     logger.With(slog.String("component", "presence")),
		entries:    make(map[model.ConnectionID]*entry),
		byUsername: make(map[string]model.ConnectionID),
	}
}

// Subscribe attaches a Subscription receiving one PresenceChange per
// successful mutation, in mutation order. Delivery never blocks the registry.
func (r *Registry) Subscribe() *Subscription {
	sub := &Subscription{
		registry: r,
		ready:    make(chan struct{}, 1),
	}
	r.mu.Lock()
	r.subscribers = append(r.subscribers, sub)
	r.mu.Unlock()
	return sub
}

func (r *Registry) unsubscribe(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.subscribers {
		if existing == sub {
			r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
			return
		}
	}
}

// Register binds identity to connID. If the username is already bound to a
// different connection, that binding is removed first and returned as
// evicted with ok set. Registering the same connection with the same
// identity again changes nothing.
func (r *Registry) Register(connID model.ConnectionID, identity model.Identity) (evicted model.ConnectionID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, found := r.entries[connID]; found {
		if existing.presence.Identity == identity {
			return "", false
		}
		// same connection rebinding to another identity
		r.remove(connID)
	}

	if prior, found := r.byUsername[identity.Username]; found && prior != connID {
		r.remove(prior)
		evicted, ok = prior, true
	}

	r.seq++
	r.entries[connID] = &entry{
		presence: model.Presence{
			ConnectionID:  connID,
			Identity:      identity,
			EstablishedAt: r.clock.Now(),
		},
		seq: r.seq,
	}
	r.byUsername[identity.Username] = connID

	r.logger.Debug("connection registered",
		slog.String("connection_id", string(connID)),
		slog.String("username", identity.Username),
		slog.String("evicted", string(evicted)),
		slog.Int("online", len(r.entries)))

	r.emit(model.PresenceRegistered, connID, evicted)
	return evicted, ok
}

// Unregister removes connID's binding. It reports false, and does nothing,
// if connID is not registered.
func (r *Registry) Unregister(connID model.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.entries[connID]; !found {
		return false
	}
	r.remove(connID)

	r.logger.Debug("connection unregistered",
		slog.String("connection_id", string(connID)),
		slog.Int("online", len(r.entries)))

	r.emit(model.PresenceUnregistered, connID, "")
	return true
}

// Snapshot returns the registered identities ordered by establishment time,
// ties broken by registration order
func (r *Registry) Snapshot() []model.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	presences := r.snapshot()
	ids := make([]model.Identity, len(presences))
	for i, p := range presences {
		ids[i] = p.Identity
	}
	return ids
}

// Len returns the number of registered connections
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// remove must be called with mu held
func (r *Registry) remove(connID model.ConnectionID) {
	e := r.entries[connID]
	delete(r.entries, connID)
	if r.byUsername[e.presence.Identity.Username] == connID {
		delete(r.byUsername, e.presence.Identity.Username)
	}
}

// snapshot must be called with mu held
func (r *Registry) snapshot() []model.Presence {
	ordered := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.presence.EstablishedAt.Equal(b.presence.EstablishedAt) {
			return a.presence.EstablishedAt.Before(b.presence.EstablishedAt)
		}
		return a.seq < b.seq
	})

	presences := make([]model.Presence, len(ordered))
	for i, e := range ordered {
		presences[i] = e.presence
	}
	return presences
}

// emit must be called with mu held
func (r *Registry) emit(kind model.PresenceChangeKind, connID, evicted model.ConnectionID) {
	if len(r.subscribers) == 0 {
		return
	}

	r.changeSeq++
	change := model.PresenceChange{
		Seq:          r.changeSeq,
		Kind:         kind,
		ConnectionID: connID,
		Evicted:      evicted,
		Timestamp:    r.clock.Now(),
		Snapshot:     r.snapshot(),
	}
	for _, sub := range r.subscribers {
		if sub.push(change) {
			r.logger.Warn("presence subscriber lagging, oldest changes discarded",
				slog.Uint64("seq", change.Seq))
		}
	}
}
