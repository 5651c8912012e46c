package handler

import (
	"net/http"

	"github.com/checkoff-auth/internal/domain"
	"github.com/go-chi/chi/v5"
)

// HealthHandler handles health-check endpoints.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "action") == "ping" {
		writeMessage(w, "pong")
		return
	}
	writeError(w, domain.Validation("Unknown health-check action."))
}
