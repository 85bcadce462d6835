// Package storagetest holds the behaviour every storage backend must share.
// Backend test suites embed Suite and set Storage in their SetupTest.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/storage"
)

// Suite is a reusable conformance suite for storage.Storage implementations
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func (s *Suite) newUser(username string) *model.User {
	return &model.User{
		ID:           model.NewUserID(),
		Username:     username,
		PasswordHash: "hash",
		Role:         model.RoleUser,
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}
}

// User tests

func (s *Suite) TestSaveAndGetUser() {
	user := s.newUser("alice")
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))

	retrieved, err := s.Storage.GetUser(s.Ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.ID, retrieved.ID)
	s.Equal("alice", retrieved.Username)
	s.Equal(model.RoleUser, retrieved.Role)
	s.True(user.CreatedAt.Equal(retrieved.CreatedAt))
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Storage.GetUser(s.Ctx, model.NewUserID())
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestGetUserByUsername() {
	user := s.newUser("alice")
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))

	retrieved, err := s.Storage.GetUserByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(user.ID, retrieved.ID)

	_, err = s.Storage.GetUserByUsername(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestUserExists() {
	user := s.newUser("alice")
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))

	exists, err := s.Storage.UserExists(s.Ctx, user.ID)
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.Storage.UserExists(s.Ctx, model.NewUserID())
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestDeleteUser() {
	user := s.newUser("alice")
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))

	s.Require().NoError(s.Storage.DeleteUser(s.Ctx, user.ID))

	_, err := s.Storage.GetUser(s.Ctx, user.ID)
	s.ErrorIs(err, model.ErrUserNotFound)
	_, err = s.Storage.GetUserByUsername(s.Ctx, "alice")
	s.ErrorIs(err, model.ErrUserNotFound)

	// Deleting again is a no-op
	s.NoError(s.Storage.DeleteUser(s.Ctx, user.ID))
}

// Response tests

func (s *Suite) TestResponsesForUser() {
	alice := s.newUser("alice")
	bob := s.newUser("bob")
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, alice))
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, bob))

	s.Require().NoError(s.Storage.SaveResponse(s.Ctx, &model.Response{UserID: alice.ID, QuestionID: "q1", Correct: true, AnsweredAt: baseTime}))
	s.Require().NoError(s.Storage.SaveResponse(s.Ctx, &model.Response{UserID: alice.ID, QuestionID: "q2", Correct: false, AnsweredAt: baseTime}))
	s.Require().NoError(s.Storage.SaveResponse(s.Ctx, &model.Response{UserID: bob.ID, QuestionID: "q1", Correct: true, AnsweredAt: baseTime}))

	responses, err := s.Storage.GetResponsesForUser(s.Ctx, alice.ID)
	s.Require().NoError(err)
	s.Len(responses, 2)
	for _, r := range responses {
		s.Equal(alice.ID, r.UserID)
	}

	responses, err = s.Storage.GetResponsesForUser(s.Ctx, bob.ID)
	s.Require().NoError(err)
	s.Len(responses, 1)
}

func (s *Suite) TestResponsesForUserWithNoneIsEmpty() {
	responses, err := s.Storage.GetResponsesForUser(s.Ctx, model.NewUserID())
	s.Require().NoError(err)
	s.Empty(responses)
}

// Score tests

func (s *Suite) TestSaveAndGetScore() {
	id := model.NewUserID()
	record := &model.ScoreRecord{UserID: id, Score: 7, ComputedAt: baseTime}
	s.Require().NoError(s.Storage.SaveScore(s.Ctx, record))

	retrieved, err := s.Storage.GetScore(s.Ctx, id)
	s.Require().NoError(err)
	s.Equal(7, retrieved.Score)
	s.True(baseTime.Equal(retrieved.ComputedAt))
}

func (s *Suite) TestGetScoreNotFound() {
	_, err := s.Storage.GetScore(s.Ctx, model.NewUserID())
	s.ErrorIs(err, model.ErrScoreNotFound)
}

func (s *Suite) TestSaveScoreOverwrites() {
	id := model.NewUserID()
	s.Require().NoError(s.Storage.SaveScore(s.Ctx, &model.ScoreRecord{UserID: id, Score: 3, ComputedAt: baseTime}))
	s.Require().NoError(s.Storage.SaveScore(s.Ctx, &model.ScoreRecord{UserID: id, Score: 5, ComputedAt: baseTime.Add(time.Minute)}))

	retrieved, err := s.Storage.GetScore(s.Ctx, id)
	s.Require().NoError(err)
	s.Equal(5, retrieved.Score)

	all, err := s.Storage.ListScores(s.Ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *Suite) TestListScores() {
	want := map[model.UserID]int{}
	for i := 0; i < 5; i++ {
		id := model.NewUserID()
		want[id] = i * 2
		s.Require().NoError(s.Storage.SaveScore(s.Ctx, &model.ScoreRecord{UserID: id, Score: i * 2, ComputedAt: baseTime}))
	}

	all, err := s.Storage.ListScores(s.Ctx)
	s.Require().NoError(err)
	s.Len(all, 5)
	for _, r := range all {
		s.Equal(want[r.UserID], r.Score)
	}
}

func (s *Suite) TestListScoresEmpty() {
	all, err := s.Storage.ListScores(s.Ctx)
	s.Require().NoError(err)
	s.Empty(all)
}
