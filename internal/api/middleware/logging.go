package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/quizcore/internal/middleware"
)

// Logging creates request logging middleware for the API.
// The wrapped writer supports Flush and Hijack so SSE and WebSocket
// routes can sit behind it.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger.With(slog.String("component", "http")))
}
