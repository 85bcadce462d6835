package sse

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/presence"
	"github.com/mcoot/quizcore/internal/realtime"
)

// Relay forwards presence registry changes to the watcher hub
type Relay struct {
	hub      *Hub
	registry *presence.Registry
	changes  *presence.Subscription
	logger   *slog.Logger
}

// NewRelay subscribes to registry changes. Run must be started to drain them.
func NewRelay(hub *Hub, registry *presence.Registry, logger *slog.Logger) *Relay {
	return &Relay{
		hub:      hub,
		registry: registry,
		changes:  registry.Subscribe(),
		logger:   logger.With(slog.String("component", "sse-relay")),
	}
}

// Run relays changes until ctx is cancelled, then detaches from the registry
func (r *Relay) Run(ctx context.Context) {
	defer r.changes.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.changes.Ready():
			for _, change := range r.changes.Drain() {
				r.relay(change)
			}
		}
	}
}

func (r *Relay) relay(change model.PresenceChange) {
	msg, err := OnlineUsersEvent(change.Identities())
	if err != nil {
		r.logger.Error("sse failed to encode snapshot", slog.Any("error", err))
		return
	}
	r.hub.Broadcast(msg)
}

// Snapshot returns the current presence as a formatted SSE event
func (r *Relay) Snapshot() ([]byte, error) {
	return OnlineUsersEvent(r.registry.Snapshot())
}

// OnlineUsersEvent formats an identity snapshot as an onlineUsers SSE event
func OnlineUsersEvent(identities []model.Identity) ([]byte, error) {
	data, err := json.Marshal(realtime.OnlineUsers(identities))
	if err != nil {
		return nil, err
	}
	return formatSSEMessage(realtime.EventOnlineUsers, string(data)), nil
}
