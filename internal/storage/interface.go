package storage

import (
	"context"

	"github.com/mcoot/quizcore/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UserExists(ctx context.Context, id model.UserID) (bool, error)
	DeleteUser(ctx context.Context, id model.UserID) error

	// Response operations
	SaveResponse(ctx context.Context, response *model.Response) error
	GetResponsesForUser(ctx context.Context, id model.UserID) ([]*model.Response, error)

	// Score operations
	SaveScore(ctx context.Context, record *model.ScoreRecord) error
	GetScore(ctx context.Context, id model.UserID) (*model.ScoreRecord, error)
	ListScores(ctx context.Context) ([]*model.ScoreRecord, error)

	Close() error
}
