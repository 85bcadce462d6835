package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/presence"
	"github.com/mcoot/quizcore/internal/realtime"
)

// pullBufferSize bounds pending snapshot requests across all connections
const pullBufferSize = 256

// Resolver turns a bearer credential into an identity resolution
type Resolver interface {
	Resolve(ctx context.Context, credential string) (model.Resolution, error)
}

// Config holds gateway settings
type Config struct {
	// AllowedOrigins restricts the Origin header on upgrade requests.
	// Empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Gateway admits WebSocket connections into the presence registry and
// relays presence snapshots to them
type Gateway struct {
	registry *presence.Registry
	resolver Resolver
	logger   *slog.Logger
	upgrader websocket.Upgrader
	hub      *hub
	changes  *presence.Subscription
	pulls    chan model.ConnectionID

	// current is the snapshot of the last change delivered by Run; only
	// Run touches it
	current []model.Identity

	// admitMu serializes the liveness check and registration of a new
	// connection against its own disconnect
	admitMu sync.Mutex
}

// NewGateway creates a Gateway. Run must be started for changes to be
// delivered.
func NewGateway(registry *presence.Registry, resolver Resolver, cfg Config, logger *slog.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		resolver: resolver,
		logger:   logger.With(slog.String("component", "gateway")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		hub:     newHub(),
		changes: registry.Subscribe(),
		pulls:   make(chan model.ConnectionID, pullBufferSize),
		current: []model.Identity{},
	}
}

// Run delivers each registry change to the connections present after it,
// in mutation order, and answers snapshot requests from the same stream
// until ctx is cancelled
func (g *Gateway) Run(ctx context.Context) {
	defer g.changes.Close()
	g.logger.Info("presence broadcaster started")
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("presence broadcaster stopped")
			return
		case <-g.changes.Ready():
			g.deliverPending()
		case id := <-g.pulls:
			// flush first so the reply is never older than a queued push
			g.deliverPending()
			g.reply(id)
		}
	}
}

func (g *Gateway) deliverPending() {
	for _, change := range g.changes.Drain() {
		g.broadcast(change)
	}
}

func (g *Gateway) broadcast(change model.PresenceChange) {
	g.current = change.Identities()

	msg, err := realtime.Encode(realtime.EventOnlineUsers, realtime.OnlineUsers(change.Identities()))
	if err != nil {
		g.logger.Error("failed to encode presence snapshot", slog.String("error", err.Error()))
		return
	}

	sent, dropped := 0, 0
	for _, id := range change.ConnectionIDs() {
		c := g.hub.get(id)
		if c == nil {
			continue
		}
		if c.Enqueue(msg) {
			sent++
		} else {
			dropped++
		}
	}

	g.logger.Debug("presence broadcast",
		slog.Uint64("seq", change.Seq),
		slog.String("kind", string(change.Kind)),
		slog.Int("sent", sent),
		slog.Int("dropped", dropped))
}

// ServeHTTP upgrades the request and runs the connection until it closes
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	credential := credentialFromRequest(r)

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		g.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(model.ConnectionID(uuid.NewString()), conn, g.logger)

	if credential == "" {
		client.Terminate(realtime.ReasonAuthMissing)
		return
	}

	go client.writePump()
	go client.readPump(g)

	g.Connect(r.Context(), client, credential)
}

// Connect resolves the credential and, on success, registers the client.
// The client's read pump must already be running so that a transport
// closing mid-resolution is observed.
func (g *Gateway) Connect(ctx context.Context, client *Client, credential string) {
	res, err := g.resolver.Resolve(ctx, credential)
	if err != nil {
		client.logger.Error("identity resolution failed", slog.String("error", err.Error()))
		client.Terminate(realtime.ReasonInternalError)
		return
	}

	switch r := res.(type) {
	case model.Resolved:
		g.admit(client, r.Identity)
	case model.Stale:
		client.logger.Info("ws credential for deleted account", slog.String("user_id", string(r.AccountID)))
		client.Terminate(realtime.ReasonAuthInvalid)
	case model.Invalid:
		client.logger.Info("ws credential rejected", slog.String("reason", string(r.Reason)))
		client.Terminate(realtime.ReasonAuthInvalid)
	default:
		client.logger.Error("unexpected resolution type")
		client.Terminate(realtime.ReasonInternalError)
	}
}

func (g *Gateway) admit(client *Client, identity model.Identity) {
	superseded, ok := g.register(client, identity)
	if !ok {
		client.logger.Info("ws connection closed during authentication")
		return
	}

	client.logger.Info("ws connection established",
		slog.String("user_id", string(identity.UserID)),
		slog.String("username", identity.Username))

	// the superseded peer is already out of the hub and registry; its
	// close handshake may block on a slow socket, so it runs unlocked
	if superseded != nil {
		superseded.Terminate(realtime.ReasonSessionSuperseded)
	}
}

// register binds a live client under admitMu. It reports false if the
// client closed while its credential was being resolved.
func (g *Gateway) register(client *Client, identity model.Identity) (superseded *Client, ok bool) {
	g.admitMu.Lock()
	defer g.admitMu.Unlock()

	if client.isClosed() {
		return nil, false
	}

	client.identity = identity
	g.hub.add(client)

	if evicted, found := g.registry.Register(client.id, identity); found {
		if old := g.hub.get(evicted); old != nil {
			g.hub.remove(old)
			superseded = old
		}
	}
	// set after Register so any pull is queued behind the registration change
	client.registered.Store(true)
	return superseded, true
}

// disconnect removes a closed client from the hub and the registry
func (g *Gateway) disconnect(client *Client) {
	g.admitMu.Lock()
	defer g.admitMu.Unlock()

	g.hub.remove(client)
	if !client.registered.Load() {
		return
	}
	if g.registry.Unregister(client.id) {
		client.logger.Info("ws connection closed",
			slog.String("username", client.identity.Username),
			slog.Duration("connection_duration", time.Since(client.connectedAt)))
	}
}

// RequestSnapshot queues a snapshot reply for a single connection. The reply
// is sent by Run, ordered with the change broadcasts.
func (g *Gateway) RequestSnapshot(id model.ConnectionID) {
	select {
	case g.pulls <- id:
	default:
		g.logger.Warn("ws snapshot request dropped - queue full",
			slog.String("connection_id", string(id)))
	}
}

func (g *Gateway) reply(id model.ConnectionID) {
	c := g.hub.get(id)
	if c == nil {
		return
	}
	msg, err := realtime.Encode(realtime.EventOnlineUsers, realtime.OnlineUsers(g.current))
	if err != nil {
		g.logger.Error("failed to encode presence snapshot", slog.String("error", err.Error()))
		return
	}
	c.Enqueue(msg)
}

// ConnectionCount returns the number of admitted connections
func (g *Gateway) ConnectionCount() int {
	return g.hub.count()
}

// Shutdown closes every connection
func (g *Gateway) Shutdown() {
	for _, c := range g.hub.all() {
		c.shutdown()
	}
}

// credentialFromRequest reads a bearer token from the Authorization header,
// falling back to the token query parameter for browser clients
func credentialFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(o)] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		return origin == "" || set[strings.ToLower(origin)]
	}
}
