package model

import "time"

// Response is a single answered quiz question.
// Only the outcome matters to scoring; quiz content lives elsewhere.
type Response struct {
	UserID     UserID    `json:"user_id"`
	QuestionID string    `json:"question_id"`
	Correct    bool      `json:"correct"`
	AnsweredAt time.Time `json:"answered_at"`
}
