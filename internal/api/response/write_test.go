package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONWritesUncachedBody(t *testing.T) {
	rr := httptest.NewRecorder()

	JSON(rr, http.StatusOK, Rank{UserID: "u1", Rank: 2, TotalUsers: 5})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"user_id":"u1","rank":2,"total_users":5}`, rr.Body.String())
}

func TestJSONEncodeFailureIsInternalError(t *testing.T) {
	rr := httptest.NewRecorder()

	JSON(rr, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `"INTERNAL_ERROR"`)
}

func TestNoContent(t *testing.T) {
	rr := httptest.NewRecorder()

	NoContent(rr)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}
