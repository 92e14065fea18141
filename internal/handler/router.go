/*
Package handler provides the HTTP handlers and routing setup for the chat server.

This file defines the main Router, applying middleware like logging, CORS and IP-based
rate limiting before delegating requests to the API and WebSocket handlers.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"babelchat/internal/pkg/limiter"
	"babelchat/internal/pkg/logx"
	"babelchat/internal/pkg/resp"
)

const (
	// AuthWindow and AuthBurst allow 10 auth requests per client per 15 minutes.
	AuthWindow = 15 * time.Minute
	AuthBurst  = 10

	ConnectRate  = 0.2
	ConnectBurst = 5
)

// Router sets up the main HTTP routing table for the application.
func Router(deps *AppDeps) http.Handler {
	authLimiter := limiter.NewIPRateLimiter("auth", rate.Every(AuthWindow/AuthBurst), AuthBurst)
	connectLimiter := limiter.NewIPRateLimiter("ws", rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]string{
			"status":  "ok",
			"service": "BabelChat Server",
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.With(authLimiter.Middleware).Post("/register", HandleRegister(deps))
			auth.With(authLimiter.Middleware).Post("/login", HandleLogin(deps))

			auth.Group(func(me chi.Router) {
				me.Use(RequireAuth(deps))
				me.Get("/me", HandleMe(deps))
				me.Patch("/profile", HandleUpdateProfile(deps))
			})
		})

		// Image tags cannot carry a bearer header.
		api.Get("/users/avatar", HandleAvatarRedirect(deps))

		api.Group(func(private chi.Router) {
			private.Use(RequireAuth(deps))

			private.Get("/users", HandleListUsers(deps))
			private.Post("/users/avatar", HandleUploadAvatar(deps))
			private.With(RequireAdmin).Patch("/users/{id}/block", HandleToggleBlock(deps))

			private.Get("/messages", HandleListMessages(deps))
			private.Patch("/messages/{id}", HandleEditMessage(deps))
			private.Delete("/messages/{id}", HandleDeleteMessage(deps))

			private.Post("/translate", HandleTranslate(deps))
		})
	})

	r.Get("/ws", HandleWebSocket(deps, wsUpgrader, connectLimiter))

	return r
}
