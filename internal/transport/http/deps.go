package http

import (
	"net/http"

	"github.com/checkoff-auth/internal/application/auth"
	"github.com/checkoff-auth/internal/application/session"
	"github.com/checkoff-auth/internal/application/user"
)

// Deps holds the application services the router exposes.
type Deps struct {
	Auth     auth.Service
	Sessions session.Service
	Users    user.Service
	// Metrics serves /metrics when set.
	Metrics http.Handler
}
