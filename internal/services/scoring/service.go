package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/quizcore/internal/dependencies/clock"
	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/storage"
)

const maxQuestionIDLength = 128

// Service aggregates stored response outcomes into per-user scores
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new scoring Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "scoring")),
	}
}

// Sync recomputes a user's score from every stored response and persists it.
// The score is the number of correct responses.
func (s *Service) Sync(ctx context.Context, userID model.UserID) (*model.ScoreRecord, error) {
	exists, err := s.storage.UserExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, model.ErrUserNotFound
	}

	responses, err := s.storage.GetResponsesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}

	record := &model.ScoreRecord{
		UserID:     userID,
		Score:      countCorrect(responses),
		ComputedAt: s.clock.Now(),
	}

	if err := s.storage.SaveScore(ctx, record); err != nil {
		return nil, fmt.Errorf("save score: %w", err)
	}

	s.logger.Debug("score synced",
		slog.String("user_id", string(userID)),
		slog.Int("score", record.Score),
		slog.Int("responses", len(responses)))

	return record, nil
}

// RecordResponse stores a response outcome for a user and re-syncs the
// user's score
func (s *Service) RecordResponse(ctx context.Context, userID model.UserID, questionID string, correct bool) (*model.ScoreRecord, error) {
	questionID = strings.TrimSpace(questionID)
	if questionID == "" || len(questionID) > maxQuestionIDLength {
		return nil, model.ErrInvalidQuestionID
	}

	exists, err := s.storage.UserExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, model.ErrUserNotFound
	}

	response := &model.Response{
		UserID:     userID,
		QuestionID: questionID,
		Correct:    correct,
		AnsweredAt: s.clock.Now(),
	}
	if err := s.storage.SaveResponse(ctx, response); err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}

	return s.Sync(ctx, userID)
}

func countCorrect(responses []*model.Response) int {
	score := 0
	for _, r := range responses {
		if r.Correct {
			score++
		}
	}
	return score
}
