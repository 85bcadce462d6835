package response

import (
	"encoding/json"
	"net/http"
)

// encodeFailure is written when a payload cannot be marshalled
const encodeFailure = `{"error":{"code":"INTERNAL_ERROR","message":"Failed to encode response"}}` + "\n"

// JSON writes data as the response body. Rankings and presence go stale
// immediately, so responses are never cached. The payload is marshalled
// before the status is sent so a failure still produces a clean 500.
func JSON(w http.ResponseWriter, status int, data any) {
	h := w.Header()
	h.Set("Cache-Control", "no-store")
	if data == nil {
		w.WriteHeader(status)
		return
	}

	body, err := json.Marshal(data)
	h.Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(encodeFailure))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// NoContent writes a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}
