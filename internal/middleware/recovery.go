package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
)

// PanicHandler writes the response for a recovered panic
type PanicHandler func(w http.ResponseWriter, r *http.Request, recovered any)

// Recovery logs panics raised by next and passes them to handler.
// http.ErrAbortHandler is re-raised so net/http still aborts the response.
// WebSocket upgrade requests get no response: the connection has been
// hijacked by the time a handler can panic.
func Recovery(logger *slog.Logger, handler PanicHandler) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "recovery"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				logger.Error("panic recovered",
					slog.Any("panic", recovered),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("upgrade", isUpgrade(r)),
					slog.String("stack", string(debug.Stack())),
				)

				if isUpgrade(r) {
					return
				}
				handler(w, r, recovered)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
