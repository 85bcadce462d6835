package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidUserID = errors.New("invalid user id")
	ErrInvalidRole   = errors.New("invalid role")
	ErrForbidden     = errors.New("operation not permitted")

	// Score errors
	ErrScoreNotFound = errors.New("score record not found")

	// Response errors
	ErrInvalidQuestionID = errors.New("invalid question id")
)
