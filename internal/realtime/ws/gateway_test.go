package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/quizcore/internal/dependencies/clock"
	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/presence"
	"github.com/mcoot/quizcore/internal/realtime"
	"github.com/mcoot/quizcore/internal/testutil"
)

const readTimeout = 2 * time.Second

// fakeResolver resolves tokens of the form "tok-<username>"; other tokens
// can be overridden per test
type fakeResolver struct {
	mu        sync.Mutex
	overrides map[string]model.Resolution
	err       error
	gate      chan struct{}
	entered   chan struct{}
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{overrides: make(map[string]model.Resolution)}
}

func (f *fakeResolver) set(token string, res model.Resolution) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[token] = res
}

func (f *fakeResolver) Resolve(_ context.Context, credential string) (model.Resolution, error) {
	f.mu.Lock()
	gate, entered, err := f.gate, f.entered, f.err
	res, overridden := f.overrides[credential]
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if overridden {
		return res, nil
	}
	if username, ok := strings.CutPrefix(credential, "tok-"); ok {
		return model.Resolved{Identity: model.Identity{
			UserID:   model.UserID("id-" + username),
			Username: username,
			Role:     model.RoleUser,
		}}, nil
	}
	return model.Invalid{Reason: model.InvalidReasonUnknown}, nil
}

type GatewaySuite struct {
	suite.Suite
	registry *presence.Registry
	resolver *fakeResolver
	gateway  *Gateway
	server   *httptest.Server
	cancel   context.CancelFunc
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	logger := testutil.NopLogger()
	s.registry = presence.NewRegistry(clock.New(), logger)
	s.resolver = newFakeResolver()
	s.gateway = NewGateway(s.registry, s.resolver, Config{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.gateway.Run(ctx)

	s.server = httptest.NewServer(s.gateway)
}

func (s *GatewaySuite) TearDownTest() {
	s.gateway.Shutdown()
	s.server.Close()
	s.cancel()
}

func (s *GatewaySuite) wsURL(token string) string {
	u := "ws" + strings.TrimPrefix(s.server.URL, "http")
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func (s *GatewaySuite) dial(token string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL(token), nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *GatewaySuite) read(conn *websocket.Conn) (realtime.Envelope, error) {
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return realtime.Envelope{}, err
	}
	return realtime.Decode(msg)
}

// expectOnlineUsers reads until an onlineUsers event with exactly the given
// usernames arrives
func (s *GatewaySuite) expectOnlineUsers(conn *websocket.Conn, usernames ...string) {
	if usernames == nil {
		usernames = []string{}
	}
	var last []string
	for {
		env, err := s.read(conn)
		s.Require().NoError(err, "waiting for %v, last saw %v", usernames, last)
		if env.Event != realtime.EventOnlineUsers {
			continue
		}
		var users []realtime.OnlineUser
		s.Require().NoError(json.Unmarshal(env.Data, &users))
		last = make([]string, len(users))
		for i, u := range users {
			last[i] = u.Username
		}
		if equalStrings(last, usernames) {
			return
		}
	}
}

// expectTermination reads the terminal error event and the close frame
func (s *GatewaySuite) expectTermination(conn *websocket.Conn, reason realtime.Reason) {
	var sawError bool
	for {
		env, err := s.read(conn)
		if err != nil {
			var closeErr *websocket.CloseError
			s.Require().True(errors.As(err, &closeErr), "expected close error, got %v", err)
			s.Equal(reason.CloseCode(), closeErr.Code)
			s.Equal(string(reason), closeErr.Text)
			s.True(sawError, "error event should precede close frame")
			return
		}
		if env.Event == realtime.EventError {
			var data realtime.ErrorData
			s.Require().NoError(json.Unmarshal(env.Data, &data))
			s.Equal(reason, data.Reason)
			sawError = true
		}
	}
}

func (s *GatewaySuite) send(conn *websocket.Conn, event string) {
	msg, err := json.Marshal(realtime.Envelope{Event: event})
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, msg))
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Handshake tests

func (s *GatewaySuite) TestMissingCredential() {
	conn := s.dial("")

	s.expectTermination(conn, realtime.ReasonAuthMissing)
	s.Equal(0, s.registry.Len())
}

func (s *GatewaySuite) TestInvalidCredential() {
	conn := s.dial("garbage")

	s.expectTermination(conn, realtime.ReasonAuthInvalid)
	s.Equal(0, s.registry.Len())
}

func (s *GatewaySuite) TestStaleCredential() {
	s.resolver.set("tok-deleted", model.Stale{AccountID: "id-deleted"})

	conn := s.dial("tok-deleted")

	s.expectTermination(conn, realtime.ReasonAuthInvalid)
	s.Equal(0, s.registry.Len())
}

func (s *GatewaySuite) TestResolverErrorIsInternalError() {
	alice := s.dial("tok-alice")
	s.expectOnlineUsers(alice, "alice")

	s.resolver.mu.Lock()
	s.resolver.err = errors.New("storage unavailable")
	s.resolver.mu.Unlock()

	conn := s.dial("tok-bob")
	s.expectTermination(conn, realtime.ReasonInternalError)

	// other connections keep working
	s.send(alice, realtime.EventGetOnlineUsers)
	s.expectOnlineUsers(alice, "alice")
}

func (s *GatewaySuite) TestHeaderCredential() {
	header := http.Header{}
	header.Set("Authorization", "Bearer tok-alice")
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL(""), header)
	s.Require().NoError(err)
	defer conn.Close()

	s.expectOnlineUsers(conn, "alice")
}

// Presence broadcast tests

func (s *GatewaySuite) TestNewcomerReceivesSnapshot() {
	conn := s.dial("tok-alice")

	s.expectOnlineUsers(conn, "alice")
	s.Equal(1, s.gateway.ConnectionCount())
}

func (s *GatewaySuite) TestPeersReceiveBroadcast() {
	alice := s.dial("tok-alice")
	s.expectOnlineUsers(alice, "alice")

	bob := s.dial("tok-bob")
	s.expectOnlineUsers(bob, "alice", "bob")
	s.expectOnlineUsers(alice, "alice", "bob")
}

func (s *GatewaySuite) TestDisconnectBroadcasts() {
	alice := s.dial("tok-alice")
	s.expectOnlineUsers(alice, "alice")
	bob := s.dial("tok-bob")
	s.expectOnlineUsers(alice, "alice", "bob")

	_ = bob.Close()

	s.expectOnlineUsers(alice, "alice")
	s.Eventually(func() bool { return s.registry.Len() == 1 }, readTimeout, 10*time.Millisecond)
}

func (s *GatewaySuite) TestSupersededSession() {
	first := s.dial("tok-alice")
	s.expectOnlineUsers(first, "alice")

	second := s.dial("tok-alice")

	s.expectTermination(first, realtime.ReasonSessionSuperseded)
	s.expectOnlineUsers(second, "alice")

	snapshot := s.registry.Snapshot()
	s.Require().Len(snapshot, 1)
	s.Equal("alice", snapshot[0].Username)

	// the evicted connection closing must not remove the new binding
	time.Sleep(50 * time.Millisecond)
	s.Equal(1, s.registry.Len())
}

func (s *GatewaySuite) TestSlowSupersededPeerDoesNotBlockOthers() {
	firstConn := s.dial("tok-alice")
	s.expectOnlineUsers(firstConn, "alice")
	clients := s.gateway.hub.all()
	s.Require().Len(clients, 1)
	first := clients[0]

	// hold the write lock as a write pump stuck on a full socket would
	first.writeMu.Lock()
	released := false
	release := func() {
		if !released {
			released = true
			first.writeMu.Unlock()
		}
	}
	defer release()

	second := s.dial("tok-alice")
	s.Eventually(func() bool { return s.gateway.hub.get(first.id) == nil }, readTimeout, 10*time.Millisecond)
	s.expectOnlineUsers(second, "alice")

	bob := s.dial("tok-bob")
	s.expectOnlineUsers(bob, "alice", "bob")

	release()
	s.expectTermination(firstConn, realtime.ReasonSessionSuperseded)
}

func (s *GatewaySuite) TestPullSnapshotRepliesToRequesterOnly() {
	alice := s.dial("tok-alice")
	s.expectOnlineUsers(alice, "alice")
	bob := s.dial("tok-bob")
	s.expectOnlineUsers(bob, "alice", "bob")
	s.expectOnlineUsers(alice, "alice", "bob")

	s.send(bob, realtime.EventGetOnlineUsers)
	s.expectOnlineUsers(bob, "alice", "bob")

	// alice sees nothing further
	_ = alice.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := alice.ReadMessage()
	s.Error(err)
}

func (s *GatewaySuite) TestUnknownEventIgnored() {
	conn := s.dial("tok-alice")
	s.expectOnlineUsers(conn, "alice")

	s.send(conn, "somethingElse")
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	s.send(conn, realtime.EventGetOnlineUsers)

	s.expectOnlineUsers(conn, "alice")
}

// Cancellation tests

func (s *GatewaySuite) TestCloseDuringResolutionLeavesNoEntry() {
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	s.resolver.mu.Lock()
	s.resolver.gate = gate
	s.resolver.entered = entered
	s.resolver.mu.Unlock()

	conn := s.dial("tok-alice")
	<-entered
	_ = conn.Close()

	// give the read pump time to observe the close
	time.Sleep(100 * time.Millisecond)
	close(gate)

	s.Never(func() bool { return s.registry.Len() > 0 }, 200*time.Millisecond, 10*time.Millisecond)
	s.Equal(0, s.gateway.ConnectionCount())
}

func TestCredentialFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=query-token", nil)
	if got := credentialFromRequest(r); got != "query-token" {
		t.Fatalf("expected query token, got %q", got)
	}

	r.Header.Set("Authorization", "Bearer header-token")
	if got := credentialFromRequest(r); got != "header-token" {
		t.Fatalf("expected header token, got %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Basic abc")
	if got := credentialFromRequest(r); got != "" {
		t.Fatalf("expected no credential, got %q", got)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://quiz.example.com"})

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if !check(r) {
		t.Error("requests without Origin should be allowed")
	}

	r.Header.Set("Origin", "https://QUIZ.example.com")
	if !check(r) {
		t.Error("listed origin should be allowed")
	}

	r.Header.Set("Origin", "https://evil.example.com")
	if check(r) {
		t.Error("unlisted origin should be rejected")
	}

	if !originChecker(nil)(r) {
		t.Error("empty allow list should accept any origin")
	}
}

// testClient is a hub entry without a transport, for driving Run directly
func testClient(id model.ConnectionID) *Client {
	return &Client{
		id:     id,
		logger: testutil.NopLogger(),
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func onlineUsernames(t *testing.T, msg []byte) []string {
	t.Helper()
	env, err := realtime.Decode(msg)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var users []realtime.OnlineUser
	if err := json.Unmarshal(env.Data, &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	return names
}

func TestPullIsOrderedAfterQueuedChanges(t *testing.T) {
	logger := testutil.NopLogger()
	registry := presence.NewRegistry(clock.New(), logger)
	gateway := NewGateway(registry, newFakeResolver(), Config{}, logger)

	alice := testClient("c-alice")
	gateway.hub.add(alice)

	// both changes are still queued when the pull arrives
	registry.Register("c-alice", model.Identity{UserID: "id-alice", Username: "alice"})
	registry.Register("c-bob", model.Identity{UserID: "id-bob", Username: "bob"})
	gateway.RequestSnapshot("c-alice")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go gateway.Run(ctx)

	var got [][]string
	for len(got) < 3 {
		select {
		case msg := <-alice.send:
			got = append(got, onlineUsernames(t, msg))
		case <-time.After(readTimeout):
			t.Fatalf("timed out, received %v", got)
		}
	}

	want := [][]string{{"alice"}, {"alice", "bob"}, {"alice", "bob"}}
	for i := range want {
		if !equalStrings(got[i], want[i]) {
			t.Fatalf("message %d: got %v, want sequence %v", i, got, want)
		}
	}
}

func TestRunDetachesFromRegistryOnExit(t *testing.T) {
	logger := testutil.NopLogger()
	registry := presence.NewRegistry(clock.New(), logger)
	gateway := NewGateway(registry, newFakeResolver(), Config{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		gateway.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	registry.Register("c1", model.Identity{UserID: "id-alice", Username: "alice"})
	if pending := gateway.changes.Drain(); len(pending) != 0 {
		t.Fatalf("stopped gateway still subscribed, got %d changes", len(pending))
	}
}
