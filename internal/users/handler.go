package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/gemini-chat/internal/http/middleware"
	"github.com/wolfman30/gemini-chat/pkg/logging"
)

// Handler handles HTTP requests for accounts and sessions
type Handler struct {
	repo     Repository
	sessions *middleware.Sessions
	logger   *logging.Logger
	hashCost int
}

// NewHandler creates a new users handler
func NewHandler(repo Repository, sessions *middleware.Sessions, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("users: repository required")
	}
	if sessions == nil {
		panic("users: sessions required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:     repo,
		sessions: sessions,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
}

type accountResponse struct {
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Signup handles POST /user/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode signup request", "error", err)
		writeJSON(w, http.StatusBadRequest, accountResponse{Message: "Invalid request body"})
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, accountResponse{Message: err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.hashCost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		writeJSON(w, http.StatusInternalServerError, accountResponse{Message: "ERROR"})
		return
	}

	user, err := h.repo.Create(r.Context(), req.Name, req.Email, string(hash))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			writeJSON(w, http.StatusUnauthorized, accountResponse{Message: "User already registered"})
			return
		}
		h.logger.Error("failed to create user", "error", err)
		writeJSON(w, http.StatusInternalServerError, accountResponse{Message: "ERROR"})
		return
	}

	if _, err := h.sessions.Issue(w, user.ID, user.Email); err != nil {
		h.logger.Error("failed to issue session", "user_id", user.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, accountResponse{Message: "ERROR"})
		return
	}

	h.logger.Info("user signed up", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, accountResponse{Message: "OK", Name: user.Name, Email: user.Email})
}

// Login handles POST /user/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode login request", "error", err)
		writeJSON(w, http.StatusBadRequest, accountResponse{Message: "Invalid request body"})
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, accountResponse{Message: err.Error()})
		return
	}

	user, err := h.repo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeJSON(w, http.StatusUnauthorized, accountResponse{Message: "User not registered"})
			return
		}
		h.logger.Error("failed to load user", "error", err)
		writeJSON(w, http.StatusInternalServerError, accountResponse{Message: "ERROR"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusForbidden, accountResponse{Message: "Incorrect Password"})
		return
	}

	if _, err := h.sessions.Issue(w, user.ID, user.Email); err != nil {
		h.logger.Error("failed to issue session", "user_id", user.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, accountResponse{Message: "ERROR"})
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, accountResponse{Message: "OK", Name: user.Name, Email: user.Email})
}

// AuthStatus handles GET /user/auth-status. Requires a session.
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := h.sessionUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{Message: "OK", Name: user.Name, Email: user.Email})
}

// Logout handles GET /user/logout. Requires a session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := h.sessionUser(w, r)
	if !ok {
		return
	}
	h.sessions.Clear(w)
	h.logger.Info("user logged out", "user_id", user.ID)
	writeJSON(w, http.StatusOK, accountResponse{Message: "OK", Name: user.Name, Email: user.Email})
}

// sessionUser loads the account behind the request session and checks the
// token still matches it.
func (h *Handler) sessionUser(w http.ResponseWriter, r *http.Request) (*User, bool) {
	claims, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, accountResponse{Message: "Token not received"})
		return nil, false
	}

	user, err := h.repo.GetByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeJSON(w, http.StatusUnauthorized, accountResponse{Message: "User not registered OR Token malfunctioned"})
			return nil, false
		}
		h.logger.Error("failed to load user", "user_id", claims.Subject, "error", err)
		writeJSON(w, http.StatusInternalServerError, accountResponse{Message: "ERROR"})
		return nil, false
	}
	if claims.Email != "" && claims.Email != user.Email {
		writeJSON(w, http.StatusUnauthorized, accountResponse{Message: "Permissions didn't match"})
		return nil, false
	}
	return user, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
