package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/gemini-chat/internal/http/middleware"
	"github.com/wolfman30/gemini-chat/pkg/logging"
)

// Service is the chat behaviour the HTTP surface depends on.
type Service interface {
	Complete(ctx context.Context, userID, message string) ([]Turn, error)
	History(ctx context.Context, userID string) ([]Turn, error)
	Clear(ctx context.Context, userID string) error
	TestModel(ctx context.Context) (ModelProbe, error)
}

// Handler wires HTTP requests to the chat service.
type Handler struct {
	service Service
	logger  *logging.Logger
}

// NewHandler creates a chat handler.
func NewHandler(service Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type newChatRequest struct {
	Message string `json:"message"`
}

type chatsResponse struct {
	Message string `json:"message,omitempty"`
	Chats   []Turn `json:"chats"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type testModelResponse struct {
	Message      string `json:"message"`
	ModelName    string `json:"modelName"`
	TestResponse string `json:"testResponse"`
}

// NewChat handles POST /chat/new.
func (h *Handler) NewChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "User not found or token invalid"})
		return
	}

	var req newChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Message is required"})
		return
	}

	chats, err := h.service.Complete(r.Context(), userID, req.Message)
	if err != nil {
		h.writeError(w, userID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chatsResponse{Chats: chats})
}

// AllChats handles GET /chat/all-chats.
func (h *Handler) AllChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "User not found or token invalid"})
		return
	}

	chats, err := h.service.History(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "User not found or token invalid"})
			return
		}
		h.logger.Error("failed to load chats", "user_id", userID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Failed to get chats", Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, chatsResponse{Message: "OK", Chats: chats})
}

// DeleteChats handles DELETE /chat/delete.
func (h *Handler) DeleteChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "User not found or token invalid"})
		return
	}

	if err := h.service.Clear(r.Context(), userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "User not found or token invalid"})
			return
		}
		h.logger.Error("failed to delete chats", "user_id", userID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Failed to delete chats", Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Chats deleted successfully"})
}

// TestModel handles GET /chat/test-model.
func (h *Handler) TestModel(w http.ResponseWriter, r *http.Request) {
	probe, err := h.service.TestModel(r.Context())
	if err != nil {
		h.logger.Error("model test failed", "model", probe.ModelName, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Gemini API test failed", Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, testModelResponse{
		Message:      "Gemini API is working",
		ModelName:    probe.ModelName,
		TestResponse: probe.Response,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, userID string, err error) {
	var completionErr *CompletionError
	switch {
	case errors.Is(err, ErrInvalidInput):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Message is required"})
	case errors.Is(err, ErrUserNotFound):
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "User not found or token invalid"})
	case errors.As(err, &completionErr):
		h.logger.Error("ai completion failed", "user_id", userID, "model", completionErr.Model, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Failed to get AI response", Error: completionErr.Err.Error()})
	default:
		h.logger.Error("chat request failed", "user_id", userID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Failed to process chat", Error: err.Error()})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
