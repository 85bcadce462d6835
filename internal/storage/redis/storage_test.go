package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini  *miniredis.Miniredis
	redis *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.redis = NewWithClient(client, DefaultConfig())
	s.Storage = s.redis
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestScoreIndexOrdersByScoreThenUserID() {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	records := []*model.ScoreRecord{
		{UserID: "b-user", Score: 10, ComputedAt: now},
		{UserID: "c-user", Score: 5, ComputedAt: now},
		{UserID: "a-user", Score: 10, ComputedAt: now},
	}
	for _, r := range records {
		s.Require().NoError(s.redis.SaveScore(s.Ctx, r))
	}

	all, err := s.redis.ListScores(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(model.UserID("a-user"), all[0].UserID)
	s.Equal(model.UserID("b-user"), all[1].UserID)
	s.Equal(model.UserID("c-user"), all[2].UserID)
}

func (s *StorageSuite) TestScoreIndexTracksOverwrite() {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.redis.SaveScore(s.Ctx, &model.ScoreRecord{UserID: "u1", Score: 1, ComputedAt: now}))
	s.Require().NoError(s.redis.SaveScore(s.Ctx, &model.ScoreRecord{UserID: "u1", Score: 4, ComputedAt: now}))

	score, err := s.mini.ZScore(s.redis.keys.scoreIndex(), "u1")
	s.Require().NoError(err)
	s.Equal(float64(-4), score)
}

func (s *StorageSuite) TestKeysUseConfiguredPrefix() {
	user := &model.User{ID: model.NewUserID(), Username: "alice", Role: model.RoleUser}
	s.Require().NoError(s.redis.SaveUser(s.Ctx, user))

	s.True(s.mini.Exists("quizcore:user:" + string(user.ID)))
	s.True(s.mini.Exists("quizcore:idx:username:alice"))
}

func (s *StorageSuite) TestListScoresSkipsDanglingIndexEntries() {
	s.Require().NoError(s.redis.client.ZAdd(s.Ctx, s.redis.keys.scoreIndex(), redis.Z{Score: -3, Member: "ghost"}).Err())

	all, err := s.redis.ListScores(s.Ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *StorageSuite) TestListScoresRejectsCorruptRecord() {
	s.Require().NoError(s.redis.client.ZAdd(s.Ctx, s.redis.keys.scoreIndex(), redis.Z{Score: -1, Member: "broken"}).Err())
	s.Require().NoError(s.mini.Set(s.redis.keys.score("broken"), "{not json"))

	_, err := s.redis.ListScores(s.Ctx)
	s.Error(err)
}
