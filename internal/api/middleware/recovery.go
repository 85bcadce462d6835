package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/quizcore/internal/api/apierr"
	"github.com/mcoot/quizcore/internal/middleware"
)

// Recovery answers handler panics with the JSON INTERNAL_ERROR body every
// other API failure uses
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger.With(slog.String("surface", "api")), writeInternalError)
}

func writeInternalError(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
