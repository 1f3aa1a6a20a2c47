package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/gemini-chat/internal/chat"
	httpmiddleware "github.com/wolfman30/gemini-chat/internal/http/middleware"
	"github.com/wolfman30/gemini-chat/internal/users"
	"github.com/wolfman30/gemini-chat/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Sessions           *httpmiddleware.Sessions
	ChatHandler        *chat.Handler
	UsersHandler       *users.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// ChatRateLimit throttles POST /chat/new per user (optional)
	ChatRateLimit func(http.Handler) http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.UsersHandler != nil {
			api.Route("/user", func(u chi.Router) {
				u.Post("/signup", cfg.UsersHandler.Signup)
				u.Post("/login", cfg.UsersHandler.Login)
				u.Group(func(authed chi.Router) {
					authed.Use(cfg.Sessions.Require)
					authed.Get("/auth-status", cfg.UsersHandler.AuthStatus)
					authed.Get("/logout", cfg.UsersHandler.Logout)
				})
			})
		}

		if cfg.ChatHandler != nil {
			api.Route("/chat", func(c chi.Router) {
				c.Use(cfg.Sessions.Require)
				if cfg.ChatRateLimit != nil {
					c.With(cfg.ChatRateLimit).Post("/new", cfg.ChatHandler.NewChat)
				} else {
					c.Post("/new", cfg.ChatHandler.NewChat)
				}
				c.Get("/all-chats", cfg.ChatHandler.AllChats)
				c.Delete("/delete", cfg.ChatHandler.DeleteChats)
				c.Get("/test-model", cfg.ChatHandler.TestModel)
			})
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
