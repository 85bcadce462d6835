package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/quizcore/internal/api/handler"
	"github.com/mcoot/quizcore/internal/api/middleware"
	"github.com/mcoot/quizcore/internal/api/response"
	"github.com/mcoot/quizcore/internal/presence"
	"github.com/mcoot/quizcore/internal/realtime/sse"
	"github.com/mcoot/quizcore/internal/realtime/ws"
	"github.com/mcoot/quizcore/internal/services/auth"
	"github.com/mcoot/quizcore/internal/services/ranking"
	"github.com/mcoot/quizcore/internal/services/scoring"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger           *slog.Logger
	StorageType      string
	AllowAdminSignup bool
	AuthService      *auth.Service
	ScoringService   *scoring.Service
	RankingService   *ranking.Service
	Registry         *presence.Registry
	Gateway          *ws.Gateway
	SSEHub           *sse.Hub
	SSERelay         *sse.Relay
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	userHandler := handler.NewUserHandler(cfg.AuthService, cfg.AllowAdminSignup, cfg.Logger)
	scoreHandler := handler.NewScoreHandler(cfg.ScoringService, cfg.RankingService, cfg.Logger)
	leaderboardHandler := handler.NewLeaderboardHandler(cfg.RankingService, cfg.Logger)
	presenceHandler := handler.NewPresenceHandler(cfg.Registry, cfg.SSEHub, cfg.SSERelay, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// User routes (no auth required for registering/logging in)
	api.HandleFunc("/users/register", userHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/users/login", userHandler.Login).Methods(http.MethodPost)

	// Protected user routes
	users := api.PathPrefix("/users").Subrouter()
	users.Use(authMiddleware)
	users.HandleFunc("/logout", userHandler.Logout).Methods(http.MethodPost)
	users.HandleFunc("/me", userHandler.GetMe).Methods(http.MethodGet)
	users.HandleFunc("/me", userHandler.DeleteMe).Methods(http.MethodDelete)

	// Response and score routes (all require auth)
	responses := api.PathPrefix("/responses").Subrouter()
	responses.Use(authMiddleware)
	responses.HandleFunc("", scoreHandler.SubmitResponse).Methods(http.MethodPost)

	scores := api.PathPrefix("/scores").Subrouter()
	scores.Use(authMiddleware)
	scores.HandleFunc("/{user_id}/sync", scoreHandler.Sync).Methods(http.MethodPost)
	scores.HandleFunc("/{user_id}/rank", scoreHandler.GetRank).Methods(http.MethodGet)

	// Leaderboard routes are public
	api.HandleFunc("/leaderboard", leaderboardHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard/top", leaderboardHandler.Top).Methods(http.MethodGet)

	// Presence routes
	presenceRoutes := api.PathPrefix("/presence").Subrouter()
	presenceRoutes.Use(authMiddleware)
	presenceRoutes.HandleFunc("", presenceHandler.List).Methods(http.MethodGet)
	presenceRoutes.HandleFunc("/events", presenceHandler.Events).Methods(http.MethodGet)

	// The gateway authenticates its own handshake
	api.Handle("/ws", cfg.Gateway).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg)).Methods(http.MethodGet)

	return r
}

func healthHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, response.Health{
			Status:      "ok",
			Storage:     cfg.StorageType,
			Online:      cfg.Registry.Len(),
			Connections: cfg.Gateway.ConnectionCount(),
			Watchers:    cfg.SSEHub.ClientCount(),
		})
	}
}
