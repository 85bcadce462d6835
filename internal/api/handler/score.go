package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/quizcore/internal/api/middleware"
	"github.com/mcoot/quizcore/internal/api/request"
	"github.com/mcoot/quizcore/internal/api/response"
	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/services/ranking"
	"github.com/mcoot/quizcore/internal/services/scoring"
)

// ScoreHandler handles response submission, score sync and rank lookups
type ScoreHandler struct {
	scoring *scoring.Service
	ranking *ranking.Service
	logger  *slog.Logger
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(scoring *scoring.Service, ranking *ranking.Service, logger *slog.Logger) *ScoreHandler {
	return &ScoreHandler{
		scoring: scoring,
		ranking: ranking,
		logger:  logger,
	}
}

// SubmitResponse handles POST /api/v1/responses
func (h *ScoreHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.SubmitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if strings.TrimSpace(req.QuestionID) == "" {
		WriteError(w, NewInvalidRequestError("question_id is required"))
		return
	}
	if req.Correct == nil {
		WriteError(w, NewInvalidRequestError("correct is required"))
		return
	}

	record, err := h.scoring.RecordResponse(r.Context(), identity.UserID, req.QuestionID, *req.Correct)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.ScoreRecordFromModel(record))
}

// Sync handles POST /api/v1/scores/{user_id}/sync.
// Users may sync themselves; admins may sync anyone.
func (h *ScoreHandler) Sync(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	userID, err := model.ParseUserID(mux.Vars(r)["user_id"])
	if err != nil {
		WriteError(w, err)
		return
	}

	if userID != identity.UserID && !identity.IsAdmin() {
		WriteError(w, model.ErrForbidden)
		return
	}

	record, err := h.scoring.Sync(r.Context(), userID)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ScoreRecordFromModel(record))
}

// GetRank handles GET /api/v1/scores/{user_id}/rank
func (h *ScoreHandler) GetRank(w http.ResponseWriter, r *http.Request) {
	userID, err := model.ParseUserID(mux.Vars(r)["user_id"])
	if err != nil {
		WriteError(w, err)
		return
	}

	rank, err := h.ranking.GetRank(r.Context(), userID)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Rank{
		UserID:     string(userID),
		Rank:       rank.Rank,
		TotalUsers: rank.TotalUsers,
	})
}
