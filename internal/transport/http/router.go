package http

import (
	"context"
	"net/http"

	"github.com/checkoff-auth/internal/config"
	"github.com/checkoff-auth/internal/transport/http/handler"
	appmiddleware "github.com/checkoff-auth/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds the
// rate limiter's background cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	if cfg.AllowedOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{cfg.AllowedOrigin},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	authMw := appmiddleware.Auth(deps.Sessions)
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(deps.Auth)
	sessionH := handler.NewSessionHandler(deps.Sessions)
	userH := handler.NewUserHandler(deps.Users)

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)

			r.Post("/register", authH.Register)
			r.Post("/confirm", authH.Confirm)
			r.Post("/login", authH.Login)
			r.Post("/refresh-token", authH.Refresh)
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions/me", sessionH.Me)
			r.Post("/sessions/logout", sessionH.Logout)
			r.Get("/sessions/devices", sessionH.Devices)
			r.Delete("/sessions/devices/{deviceId}", sessionH.RevokeDevice)
			r.Get("/users/me", userH.Me)
			r.Put("/users/me", userH.UpdateMe)
			r.Post("/users/me/password", userH.ChangePassword)
		})
	})

	return r
}
