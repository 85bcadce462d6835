package response

import (
	"time"

	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/services/auth"
)

// User represents a user in API responses
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserFromIdentity converts a model.Identity to a response User
func UserFromIdentity(id model.Identity) User {
	return User{
		ID:       string(id.UserID),
		Username: id.Username,
		Role:     string(id.Role),
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	User         User      `json:"user"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		User:         UserFromIdentity(s.Identity),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// ScoreRecord is a persisted score
type ScoreRecord struct {
	UserID     string    `json:"user_id"`
	Score      int       `json:"score"`
	ComputedAt time.Time `json:"computed_at"`
}

// ScoreRecordFromModel converts a model.ScoreRecord
func ScoreRecordFromModel(r *model.ScoreRecord) ScoreRecord {
	return ScoreRecord{
		UserID:     string(r.UserID),
		Score:      r.Score,
		ComputedAt: r.ComputedAt,
	}
}

// ScoreRecordsFromModel converts a slice of records, never returning nil
func ScoreRecordsFromModel(records []*model.ScoreRecord) []ScoreRecord {
	out := make([]ScoreRecord, len(records))
	for i, r := range records {
		out[i] = ScoreRecordFromModel(r)
	}
	return out
}

// Rank is a user's position in the ranking
type Rank struct {
	UserID     string `json:"user_id"`
	Rank       int    `json:"rank"`
	TotalUsers int    `json:"total_users"`
}

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// Leaderboard is one page of the ranking
type Leaderboard struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Total       int                `json:"total"`
	Page        int                `json:"page"`
	TotalPages  int                `json:"total_pages"`
}

// LeaderboardFromModel converts a model.Leaderboard
func LeaderboardFromModel(b *model.Leaderboard) Leaderboard {
	entries := make([]LeaderboardEntry, len(b.Entries))
	for i, e := range b.Entries {
		entries[i] = LeaderboardEntry{
			Rank:     e.Rank,
			UserID:   string(e.UserID),
			Username: e.Username,
			Score:    e.Score,
		}
	}
	return Leaderboard{
		Leaderboard: entries,
		Total:       b.Total,
		Page:        b.Page,
		TotalPages:  b.TotalPages,
	}
}

// TopRanking is the response for the top-N query
type TopRanking struct {
	Ranking []ScoreRecord `json:"ranking"`
}

// OnlineUser is one connected user
type OnlineUser struct {
	Username string `json:"username"`
}

// Presence lists the connected users in snapshot order
type Presence struct {
	OnlineUsers []OnlineUser `json:"online_users"`
	Count       int          `json:"count"`
}

// PresenceFromIdentities converts a registry snapshot
func PresenceFromIdentities(ids []model.Identity) Presence {
	users := make([]OnlineUser, len(ids))
	for i, id := range ids {
		users[i] = OnlineUser{Username: id.Username}
	}
	return Presence{OnlineUsers: users, Count: len(users)}
}

// Health is the health check response
type Health struct {
	Status      string `json:"status"`
	Storage     string `json:"storage"`
	Online      int    `json:"online"`
	Connections int    `json:"connections"`
	Watchers    int    `json:"watchers"`
}
