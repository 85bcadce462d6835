package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mcoot/quizcore/internal/api/middleware"
	"github.com/mcoot/quizcore/internal/api/request"
	"github.com/mcoot/quizcore/internal/api/response"
	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/services/auth"
)

// UserHandler handles account endpoints
type UserHandler struct {
	authService *auth.Service
	logger      *slog.Logger
	// allowAdminSignup lets registration request the admin role
	allowAdminSignup bool
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService *auth.Service, allowAdminSignup bool, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		authService:      authService,
		logger:           logger,
		allowAdminSignup: allowAdminSignup,
	}
}

// Register handles POST /api/v1/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	role := model.Role(req.Role)
	if role == model.RoleAdmin && !h.allowAdminSignup {
		WriteError(w, model.ErrForbidden)
		return
	}

	session, err := h.authService.Register(r.Context(), req.Username, req.Password, role)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// Logout handles POST /api/v1/users/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := middleware.GetSession(r.Context()); session != nil {
		h.authService.InvalidateSession(session.Token)
	}
	response.NoContent(w)
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	response.JSON(w, http.StatusOK, response.UserFromIdentity(identity))
}

// DeleteMe handles DELETE /api/v1/users/me. Score records survive the
// account; outstanding tokens stop resolving.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	if err := h.authService.DeleteAccount(r.Context(), identity.UserID); err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	response.NoContent(w)
}
