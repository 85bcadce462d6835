package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/quizcore/internal/dependencies/mocks"
	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/storage/memory"
	"github.com/mcoot/quizcore/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.service = New(s.storage, s.clock, s.random, Config{
		SessionDuration: time.Hour,
		BcryptCost:      bcrypt.MinCost,
	}, testutil.NopLogger())
	s.ctx = context.Background()
}

// Register tests

func (s *ServiceSuite) TestRegisterSucceeds() {
	session, err := s.service.Register(s.ctx, "alice", "password123", "")
	s.Require().NoError(err)

	s.True(strings.HasPrefix(session.Token, "sess_"))
	s.Equal("alice", session.Identity.Username)
	s.Equal(model.RoleUser, session.Identity.Role)
	s.NotEmpty(session.UserID)
}

func (s *ServiceSuite) TestRegisterPersistsUser() {
	session, _ := s.service.Register(s.ctx, "alice", "password123", model.RoleAdmin)

	user, err := s.storage.GetUser(s.ctx, session.UserID)
	s.Require().NoError(err)
	s.Equal("alice", user.Username)
	s.Equal(model.RoleAdmin, user.Role)
	s.NotEqual("password123", user.PasswordHash)
}

func (s *ServiceSuite) TestRegisterUsesQueuedToken() {
	s.random.QueueString("abc")

	session, err := s.service.Register(s.ctx, "alice", "password123", "")
	s.Require().NoError(err)
	s.Equal("sess_abc", session.Token)
}

func (s *ServiceSuite) TestRegisterDuplicateUsernameFails() {
	_, err := s.service.Register(s.ctx, "alice", "password123", "")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "alice", "other", "")
	s.ErrorIs(err, ErrUsernameExists)
}

func (s *ServiceSuite) TestRegisterInvalidUsernameFails() {
	for _, name := range []string{"", "has space", strings.Repeat("a", 33), "semi;colon"} {
		_, err := s.service.Register(s.ctx, name, "password123", "")
		s.ErrorIs(err, ErrInvalidUsername, name)
	}
}

func (s *ServiceSuite) TestRegisterInvalidRoleFails() {
	_, err := s.service.Register(s.ctx, "alice", "password123", model.Role("root"))
	s.ErrorIs(err, model.ErrInvalidRole)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	registered, _ := s.service.Register(s.ctx, "alice", "password123", "")

	session, err := s.service.Login(s.ctx, "alice", "password123")
	s.Require().NoError(err)
	s.Equal(registered.UserID, session.UserID)
	s.NotEqual(registered.Token, session.Token)
}

func (s *ServiceSuite) TestLoginWrongPasswordFails() {
	_, _ = s.service.Register(s.ctx, "alice", "password123", "")

	_, err := s.service.Login(s.ctx, "alice", "wrong")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginUnknownUserFails() {
	_, err := s.service.Login(s.ctx, "nobody", "password123")
	s.ErrorIs(err, ErrInvalidCredentials)
}

// Resolve tests

func (s *ServiceSuite) TestResolveValidToken() {
	session, _ := s.service.Register(s.ctx, "alice", "password123", "")

	res, err := s.service.Resolve(s.ctx, session.Token)
	s.Require().NoError(err)

	resolved, ok := res.(model.Resolved)
	s.Require().True(ok)
	s.Equal(session.UserID, resolved.Identity.UserID)
	s.Equal("alice", resolved.Identity.Username)
}

func (s *ServiceSuite) TestResolveMalformedToken() {
	for _, token := range []string{"", "garbage", "sess_"} {
		res, err := s.service.Resolve(s.ctx, token)
		s.Require().NoError(err)
		s.Equal(model.Invalid{Reason: model.InvalidReasonMalformed}, res, token)
	}
}

func (s *ServiceSuite) TestResolveUnknownToken() {
	res, err := s.service.Resolve(s.ctx, "sess_doesnotexist")
	s.Require().NoError(err)
	s.Equal(model.Invalid{Reason: model.InvalidReasonUnknown}, res)
}

func (s *ServiceSuite) TestResolveExpiredToken() {
	session, _ := s.service.Register(s.ctx, "alice", "password123", "")

	s.clock.Advance(2 * time.Hour)

	res, err := s.service.Resolve(s.ctx, session.Token)
	s.Require().NoError(err)
	s.Equal(model.Invalid{Reason: model.InvalidReasonExpired}, res)

	// expired sessions are dropped on first sight
	res, _ = s.service.Resolve(s.ctx, session.Token)
	s.Equal(model.Invalid{Reason: model.InvalidReasonUnknown}, res)
}

func (s *ServiceSuite) TestResolveDeletedAccountIsStale() {
	session, _ := s.service.Register(s.ctx, "alice", "password123", "")
	s.Require().NoError(s.service.DeleteAccount(s.ctx, session.UserID))

	res, err := s.service.Resolve(s.ctx, session.Token)
	s.Require().NoError(err)
	s.Equal(model.Stale{AccountID: session.UserID}, res)
}

func (s *ServiceSuite) TestResolveStorageFailureIsError() {
	failing := &failingStorage{Storage: s.storage}
	svc := New(failing, s.clock, s.random, Config{BcryptCost: bcrypt.MinCost}, testutil.NopLogger())
	session, err := svc.Register(s.ctx, "alice", "password123", "")
	s.Require().NoError(err)

	failing.fail = true
	res, err := svc.Resolve(s.ctx, session.Token)
	s.Error(err)
	s.Nil(res)
}

// ValidateSession tests

func (s *ServiceSuite) TestValidateSessionSucceeds() {
	session, _ := s.service.Register(s.ctx, "alice", "password123", "")

	validated, err := s.service.ValidateSession(s.ctx, session.Token)
	s.Require().NoError(err)
	s.Equal(session.UserID, validated.UserID)
	s.Equal("alice", validated.Identity.Username)
}

func (s *ServiceSuite) TestValidateSessionDeletedAccountFails() {
	session, _ := s.service.Register(s.ctx, "alice", "password123", "")
	_ = s.service.DeleteAccount(s.ctx, session.UserID)

	_, err := s.service.ValidateSession(s.ctx, session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestInvalidateSession() {
	session, _ := s.service.Register(s.ctx, "alice", "password123", "")

	s.service.InvalidateSession(session.Token)

	_, err := s.service.ValidateSession(s.ctx, session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

// CleanExpiredSessions tests

func (s *ServiceSuite) TestCleanExpiredSessions() {
	_, _ = s.service.Register(s.ctx, "alice", "password123", "")
	s.clock.Advance(30 * time.Minute)
	fresh, _ := s.service.Register(s.ctx, "bob", "password123", "")
	s.clock.Advance(45 * time.Minute)

	removed := s.service.CleanExpiredSessions()
	s.Equal(1, removed)

	_, err := s.service.ValidateSession(s.ctx, fresh.Token)
	s.NoError(err)
}

type failingStorage struct {
	*memory.Storage
	fail bool
}

func (f *failingStorage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	if f.fail {
		return nil, errors.New("connection refused")
	}
	return f.Storage.GetUser(ctx, id)
}
