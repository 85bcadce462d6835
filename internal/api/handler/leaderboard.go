package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mcoot/quizcore/internal/api/response"
	"github.com/mcoot/quizcore/internal/services/ranking"
)

// LeaderboardHandler serves ranked views
type LeaderboardHandler struct {
	ranking *ranking.Service
	logger  *slog.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(ranking *ranking.Service, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		ranking: ranking,
		logger:  logger,
	}
}

// Get handles GET /api/v1/leaderboard?page=&limit=
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page")
	limit := queryInt(r, "limit")

	board, err := h.ranking.GetLeaderboard(r.Context(), page, limit)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(board))
}

// Top handles GET /api/v1/leaderboard/top?limit=
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	records, err := h.ranking.GetTopRanking(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TopRanking{
		Ranking: response.ScoreRecordsFromModel(records),
	})
}

// queryInt reads an integer query parameter. Missing or unparsable values
// are 0, which the ranking service treats as unspecified.
func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
