package redis

import (
	"fmt"

	"github.com/mcoot/quizcore/internal/model"
)

// keys builds Redis keys under a fixed prefix
type keys struct {
	prefix string
}

// user returns the Redis key for a User
func (k keys) user(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", k.prefix, id)
}

// usernameIndex returns the Redis key for the username -> user_id index
func (k keys) usernameIndex(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", k.prefix, username)
}

// responses returns the Redis key for the LIST of a user's responses
func (k keys) responses(id model.UserID) string {
	return fmt.Sprintf("%s:responses:%s", k.prefix, id)
}

// score returns the Redis key for a ScoreRecord
func (k keys) score(id model.UserID) string {
	return fmt.Sprintf("%s:score:%s", k.prefix, id)
}

// scoreIndex returns the Redis key for the ZSET of user IDs.
// Members are stored with the negated score so that ascending ZSET order is
// score descending with ties broken by ascending user ID.
func (k keys) scoreIndex() string {
	return fmt.Sprintf("%s:idx:scores", k.prefix)
}
