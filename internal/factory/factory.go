package factory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/quizcore/internal/api"
	"github.com/mcoot/quizcore/internal/config"
	"github.com/mcoot/quizcore/internal/dependencies/clock"
	"github.com/mcoot/quizcore/internal/dependencies/random"
	"github.com/mcoot/quizcore/internal/presence"
	"github.com/mcoot/quizcore/internal/realtime/sse"
	"github.com/mcoot/quizcore/internal/realtime/ws"
	"github.com/mcoot/quizcore/internal/services/auth"
	"github.com/mcoot/quizcore/internal/services/ranking"
	"github.com/mcoot/quizcore/internal/services/scoring"
	"github.com/mcoot/quizcore/internal/storage"
	"github.com/mcoot/quizcore/internal/storage/memory"
	redisstorage "github.com/mcoot/quizcore/internal/storage/redis"
	"github.com/mcoot/quizcore/internal/storage/sqldb"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage     storage.Storage
	StorageType string

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService    *auth.Service
	ScoringService *scoring.Service
	RankingService *ranking.Service

	// Presence
	Registry *presence.Registry
	Gateway  *ws.Gateway
	SSEHub   *sse.Hub
	SSERelay *sse.Relay

	authConfig auth.Config
	logger     *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// GatewayConfig holds WebSocket gateway settings (optional)
	GatewayConfig ws.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sql")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLConfig holds database settings (required if StorageType is "sql")
	SQLConfig *sqldb.Config
}

// ConfigFrom builds a factory Config from loaded server configuration
func ConfigFrom(cfg config.Config, logger *slog.Logger) Config {
	redisCfg := cfg.Storage.Redis
	sqlCfg := cfg.Storage.SQL
	return Config{
		AuthConfig:    cfg.Auth,
		GatewayConfig: cfg.Gateway,
		Logger:        logger,
		StorageType:   cfg.Storage.Type,
		RedisConfig:   &redisCfg,
		SQLConfig:     &sqlCfg,
	}
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = config.StorageTypeMemory
	}

	store, err := newStorage(ctx, storageType, cfg)
	if err != nil {
		return nil, err
	}

	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}

	app := newWithDependencies(store, clock.New(), random.New(), authCfg, cfg.GatewayConfig, logger)
	app.StorageType = storageType
	return app, nil
}

func newStorage(ctx context.Context, storageType string, cfg Config) (storage.Storage, error) {
	switch storageType {
	case config.StorageTypeMemory:
		return memory.New(), nil
	case config.StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, fmt.Errorf("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case config.StorageTypeSQL:
		if cfg.SQLConfig == nil {
			return nil, fmt.Errorf("SQLConfig required when StorageType is sql")
		}
		return sqldb.New(ctx, *cfg.SQLConfig)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be memory, redis or sql", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, authCfg auth.Config, gatewayCfg ws.Config, logger *slog.Logger) *App {
	authService := auth.New(store, clk, rnd, authCfg, logger)
	registry := presence.NewRegistry(clk, logger)
	hub := sse.NewHub(logger)

	return &App{
		Storage:        store,
		StorageType:    config.StorageTypeMemory,
		Clock:          clk,
		Random:         rnd,
		AuthService:    authService,
		ScoringService: scoring.New(store, clk, logger),
		RankingService: ranking.New(store, logger),
		Registry:       registry,
		Gateway:        ws.NewGateway(registry, authService, gatewayCfg, logger),
		SSEHub:         hub,
		SSERelay:       sse.NewRelay(hub, registry, logger),
		authConfig:     authCfg,
		logger:         logger,
	}
}

// Start launches the background loops (presence broadcaster, SSE relay,
// session janitor). They stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	go a.Gateway.Run(ctx)
	go a.SSEHub.Run()
	go a.SSERelay.Run(ctx)
	if a.authConfig.JanitorInterval > 0 {
		go a.AuthService.RunSessionJanitor(ctx, a.authConfig.JanitorInterval)
	}
}

// Router builds the HTTP API over the wired components
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:           a.logger,
		StorageType:      a.StorageType,
		AllowAdminSignup: a.authConfig.AllowAdminSignup,
		AuthService:      a.AuthService,
		ScoringService:   a.ScoringService,
		RankingService:   a.RankingService,
		Registry:         a.Registry,
		Gateway:          a.Gateway,
		SSEHub:           a.SSEHub,
		SSERelay:         a.SSERelay,
	})
}

// CloseRealtime disconnects every WebSocket and SSE client. Hijacked and
// streaming connections are not drained by http.Server.Shutdown, so this
// runs first on shutdown.
func (a *App) CloseRealtime() {
	a.Gateway.Shutdown()
	a.SSEHub.Close()
}

// Close disconnects realtime clients and releases storage
func (a *App) Close() error {
	a.CloseRealtime()
	return a.Storage.Close()
}
