package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/storage"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Service answers rank and leaderboard queries over persisted scores
type Service struct {
	storage storage.Storage
	logger  *slog.Logger
}

// New creates a new ranking Service
func New(storage storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger.With(slog.String("component", "ranking")),
	}
}

// NormalizeLimit clamps a requested page size into [1, MaxLimit].
// Zero means unspecified and yields DefaultLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultLimit
	case limit < 1:
		return 1
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// NormalizePage clamps a requested page number to at least 1
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// GetRank returns the 1-based position of a user in the full ranking
func (s *Service) GetRank(ctx context.Context, userID model.UserID) (*model.Rank, error) {
	records, err := s.ranked(ctx)
	if err != nil {
		return nil, err
	}

	for i, r := range records {
		if r.UserID == userID {
			return &model.Rank{Rank: i + 1, TotalUsers: len(records)}, nil
		}
	}
	return nil, model.ErrScoreNotFound
}

// GetLeaderboard returns one page of the ranking with usernames attached.
// Pages past the end have no entries.
func (s *Service) GetLeaderboard(ctx context.Context, page, limit int) (*model.Leaderboard, error) {
	page = NormalizePage(page)
	limit = NormalizeLimit(limit)

	records, err := s.ranked(ctx)
	if err != nil {
		return nil, err
	}

	total := len(records)
	board := &model.Leaderboard{
		Entries:    []model.LeaderboardEntry{},
		Total:      total,
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
	}

	// compare pages before multiplying so huge page numbers cannot overflow
	if page > board.TotalPages {
		return board, nil
	}
	start := (page - 1) * limit
	end := min(start+limit, total)

	for i := start; i < end; i++ {
		username, err := s.username(ctx, records[i].UserID)
		if err != nil {
			return nil, err
		}
		board.Entries = append(board.Entries, model.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   records[i].UserID,
			Username: username,
			Score:    records[i].Score,
		})
	}

	return board, nil
}

// GetTopRanking returns the first min(limit, total) score records in rank order
func (s *Service) GetTopRanking(ctx context.Context, limit int) ([]*model.ScoreRecord, error) {
	limit = NormalizeLimit(limit)

	records, err := s.ranked(ctx)
	if err != nil {
		return nil, err
	}

	return records[:min(limit, len(records))], nil
}

// ranked loads every score record and sorts it by score descending, then
// user ID ascending
func (s *Service) ranked(ctx context.Context) ([]*model.ScoreRecord, error) {
	records, err := s.storage.ListScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	Sort(records)
	return records, nil
}

// Sort orders records by score descending, ties by ascending user ID
func Sort(records []*model.ScoreRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return records[i].UserID < records[j].UserID
	})
}

// username looks up a display handle. Deleted users keep their score but
// show an empty username.
func (s *Service) username(ctx context.Context, id model.UserID) (string, error) {
	user, err := s.storage.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			s.logger.Debug("ranked user no longer exists", slog.String("user_id", string(id)))
			return "", nil
		}
		return "", fmt.Errorf("get user: %w", err)
	}
	return user.Username, nil
}
