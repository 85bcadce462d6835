package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
	keys   keys
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultConfig().KeyPrefix
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		keys:   keys{prefix: prefix},
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.user(user.ID), data, 0)
	pipe.Set(ctx, s.keys.usernameIndex(user.Username), string(user.ID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, s.keys.user(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	// Look up user ID from username index
	id, err := s.client.Get(ctx, s.keys.usernameIndex(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	return s.GetUser(ctx, model.UserID(id))
}

func (s *Storage) UserExists(ctx context.Context, id model.UserID) (bool, error) {
	exists, err := s.client.Exists(ctx, s.keys.user(id)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keys.user(id))
	pipe.Del(ctx, s.keys.usernameIndex(user.Username))
	_, err = pipe.Exec(ctx)
	return err
}

// Response operations

func (s *Storage) SaveResponse(ctx context.Context, response *model.Response) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.keys.responses(response.UserID), data).Err()
}

func (s *Storage) GetResponsesForUser(ctx context.Context, id model.UserID) ([]*model.Response, error) {
	values, err := s.client.LRange(ctx, s.keys.responses(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	responses := make([]*model.Response, 0, len(values))
	for _, val := range values {
		var r model.Response
		if err := json.Unmarshal([]byte(val), &r); err != nil {
			return nil, fmt.Errorf("decode response for %s: %w", id, err)
		}
		responses = append(responses, &r)
	}
	return responses, nil
}

// Score operations

func (s *Storage) SaveScore(ctx context.Context, record *model.ScoreRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	// Record and ranking index change together
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.score(record.UserID), data, 0)
	pipe.ZAdd(ctx, s.keys.scoreIndex(), redis.Z{
		Score:  -float64(record.Score),
		Member: string(record.UserID),
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetScore(ctx context.Context, id model.UserID) (*model.ScoreRecord, error) {
	data, err := s.client.Get(ctx, s.keys.score(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrScoreNotFound
		}
		return nil, err
	}

	var record model.ScoreRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListScores returns every score record in ranking order
func (s *Storage) ListScores(ctx context.Context) ([]*model.ScoreRecord, error) {
	ids, err := s.client.ZRange(ctx, s.keys.scoreIndex(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []*model.ScoreRecord{}, nil
	}

	scoreKeys := make([]string, len(ids))
	for i, id := range ids {
		scoreKeys[i] = s.keys.score(model.UserID(id))
	}

	values, err := s.client.MGet(ctx, scoreKeys...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*model.ScoreRecord, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Index entry without a record
		}
		str, ok := val.(string)
		if !ok {
			continue
		}
		var record model.ScoreRecord
		if err := json.Unmarshal([]byte(str), &record); err != nil {
			return nil, fmt.Errorf("decode score record: %w", err)
		}
		records = append(records, &record)
	}

	return records, nil
}
