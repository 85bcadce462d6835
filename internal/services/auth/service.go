package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/quizcore/internal/dependencies/clock"
	"github.com/mcoot/quizcore/internal/dependencies/random"
	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("invalid username")
)

const (
	tokenPrefix = "sess_"
	tokenLength = 32

	maxUsernameLength = 32
)

// Session represents an authenticated session
type Session struct {
	Token     string
	UserID    model.UserID
	Identity  model.Identity
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service issues and resolves session credentials
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration time.Duration
	bcryptCost      int
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration `yaml:"session_duration"`
	// BcryptCost defaults to bcrypt.DefaultCost; tests lower it
	BcryptCost int `yaml:"bcrypt_cost"`
	// JanitorInterval is how often expired sessions are swept
	JanitorInterval time.Duration `yaml:"janitor_interval"`
	// AllowAdminSignup lets self-registration request the admin role
	AllowAdminSignup bool `yaml:"allow_admin_signup"`
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
		BcryptCost:      bcrypt.DefaultCost,
		JanitorInterval: 10 * time.Minute,
	}
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		storage:         storage,
		clock:           clock,
		random:          random,
		logger:          logger.With(slog.String("component", "auth")),
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
		bcryptCost:      cfg.BcryptCost,
	}
}

// Register creates an account and a session for it
func (s *Service) Register(ctx context.Context, username, password string, role model.Role) (*Session, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return nil, model.ErrInvalidRole
	}

	// Check if username exists
	_, err := s.storage.GetUserByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &model.User{
		ID:           model.NewUserID(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", string(user.ID)),
		slog.String("username", user.Username))

	return s.createSession(user), nil
}

// Login authenticates an account and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.createSession(user), nil
}

// Resolve turns a raw bearer credential into a tagged resolution.
// The returned error is non-nil only when a collaborator (storage) fails.
func (s *Service) Resolve(ctx context.Context, credential string) (model.Resolution, error) {
	if !strings.HasPrefix(credential, tokenPrefix) || len(credential) == len(tokenPrefix) {
		return model.Invalid{Reason: model.InvalidReasonMalformed}, nil
	}

	s.mu.RLock()
	session, ok := s.sessions[credential]
	s.mu.RUnlock()

	if !ok {
		return model.Invalid{Reason: model.InvalidReasonUnknown}, nil
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.InvalidateSession(credential)
		return model.Invalid{Reason: model.InvalidReasonExpired}, nil
	}

	user, err := s.storage.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.Stale{AccountID: session.UserID}, nil
		}
		return nil, err
	}

	return model.Resolved{Identity: user.Identity()}, nil
}

// ValidateSession checks a session token and returns the live identity.
// Deleted accounts and expired tokens both yield ErrInvalidSession.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	res, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	r, ok := res.(model.Resolved)
	if !ok {
		return nil, ErrInvalidSession
	}

	s.mu.RLock()
	stored, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		// logged out between resolve and lookup
		return nil, ErrInvalidSession
	}

	session := *stored
	session.Identity = r.Identity
	return &session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// DeleteAccount removes a user. Outstanding sessions stay in place and
// resolve as Stale until they expire.
func (s *Service) DeleteAccount(ctx context.Context, id model.UserID) error {
	if err := s.storage.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("user_id", string(id)))
	return nil
}

// createSession creates a new session for a user
func (s *Service) createSession(user *model.User) *Session {
	now := s.clock.Now()
	session := &Session{
		Token:     tokenPrefix + s.random.String(tokenLength, random.TokenAlphabet),
		UserID:    user.ID,
		Identity:  user.Identity(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	return session
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// RunSessionJanitor removes expired sessions every interval until ctx ends
func (s *Service) RunSessionJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.CleanExpiredSessions(); removed > 0 {
				s.logger.Info("expired sessions cleaned", slog.Int("removed", removed))
			}
		}
	}
}

func validateUsername(username string) error {
	if username == "" || len(username) > maxUsernameLength {
		return ErrInvalidUsername
	}
	for _, r := range username {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-' || r == '.') {
			return ErrInvalidUsername
		}
	}
	return nil
}
