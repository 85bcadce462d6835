package model

import "time"

// ScoreRecord is the persisted per-user aggregate of response outcomes.
// There is exactly one record per user; each sync overwrites it.
type ScoreRecord struct {
	UserID     UserID    `json:"user_id"`
	Score      int       `json:"score"`
	ComputedAt time.Time `json:"computed_at"`
}

// LeaderboardEntry is a ranked score joined with the user's handle
type LeaderboardEntry struct {
	Rank     int
	UserID   UserID
	Username string
	Score    int
}

// Leaderboard is one page of the ranked score list
type Leaderboard struct {
	Entries    []LeaderboardEntry
	Total      int
	Page       int
	TotalPages int
}

// Rank is a user's position in the full ranking
type Rank struct {
	Rank       int
	TotalUsers int
}
