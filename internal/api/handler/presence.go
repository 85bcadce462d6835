package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/quizcore/internal/api/middleware"
	"github.com/mcoot/quizcore/internal/api/response"
	"github.com/mcoot/quizcore/internal/presence"
	"github.com/mcoot/quizcore/internal/realtime/sse"
)

// PresenceHandler exposes the presence registry over plain HTTP and SSE
type PresenceHandler struct {
	registry *presence.Registry
	hub      *sse.Hub
	relay    *sse.Relay
	logger   *slog.Logger
}

// NewPresenceHandler creates a new presence handler
func NewPresenceHandler(registry *presence.Registry, hub *sse.Hub, relay *sse.Relay, logger *slog.Logger) *PresenceHandler {
	return &PresenceHandler{
		registry: registry,
		hub:      hub,
		relay:    relay,
		logger:   logger,
	}
}

// List handles GET /api/v1/presence
func (h *PresenceHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.PresenceFromIdentities(h.registry.Snapshot()))
}

// Events handles GET /api/v1/presence/events
func (h *PresenceHandler) Events(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	sse.ServeSSE(w, r, h.hub, identity.UserID, func() []byte {
		msg, err := h.relay.Snapshot()
		if err != nil {
			h.logger.Error("failed to encode presence snapshot", slog.Any("error", err))
			return nil
		}
		return msg
	})
}
