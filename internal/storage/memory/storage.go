package memory

import (
	"context"
	"sync"

	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.User
	usernameIndex map[string]model.UserID
	responses     map[model.UserID][]*model.Response
	scores        map[model.UserID]*model.ScoreRecord
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		usernameIndex: make(map[string]model.UserID),
		responses:     make(map[model.UserID][]*model.Response),
		scores:        make(map[model.UserID]*model.ScoreRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[user.ID] = &u
	s.usernameIndex[user.Username] = user.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *Storage) UserExists(ctx context.Context, id model.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		delete(s.usernameIndex, user.Username)
		delete(s.users, id)
	}
	return nil
}

// Response operations

func (s *Storage) SaveResponse(ctx context.Context, response *model.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *response
	s.responses[response.UserID] = append(s.responses[response.UserID], &r)
	return nil
}

func (s *Storage) GetResponsesForUser(ctx context.Context, id model.UserID) ([]*model.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.responses[id]
	result := make([]*model.Response, 0, len(stored))
	for _, r := range stored {
		copied := *r
		result = append(result, &copied)
	}
	return result, nil
}

// Score operations

func (s *Storage) SaveScore(ctx context.Context, record *model.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *record
	s.scores[record.UserID] = &r
	return nil
}

func (s *Storage) GetScore(ctx context.Context, id model.UserID) (*model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.scores[id]
	if !ok {
		return nil, model.ErrScoreNotFound
	}
	r := *record
	return &r, nil
}

// ListScores returns every score record in no particular order
func (s *Storage) ListScores(ctx context.Context) ([]*model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.ScoreRecord, 0, len(s.scores))
	for _, record := range s.scores {
		r := *record
		result = append(result, &r)
	}
	return result, nil
}
