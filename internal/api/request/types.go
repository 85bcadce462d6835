package request

// RegisterRequest is the request body for registering a user
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SubmitResponseRequest is the request body for recording an answer outcome
type SubmitResponseRequest struct {
	QuestionID string `json:"question_id"`
	Correct    *bool  `json:"correct"`
}
