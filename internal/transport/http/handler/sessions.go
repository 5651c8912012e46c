package handler

import (
	"net/http"

	"github.com/checkoff-auth/internal/application/session"
	"github.com/checkoff-auth/internal/domain"
	jwtinfra "github.com/checkoff-auth/internal/infrastructure/jwt"
	"github.com/checkoff-auth/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// ClaimsEnvelope is the caller's identity as carried by the access token.
type ClaimsEnvelope struct {
	UserID   string   `json:"userId"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Projects []string `json:"projects"`
	DeviceID string   `json:"deviceId"`
}

// SessionHandler handles endpoints for the current session.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, toClaimsEnvelope(claims))
}

// Logout revokes the refresh token of the device the access token was issued to.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	if err := h.svc.Revoke(r.Context(), claims.UserID, claims.DeviceID); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "Logged out.")
}

// DevicesEnvelope lists the devices signed in to the caller's account.
type DevicesEnvelope struct {
	Devices []domain.Device `json:"devices"`
}

func (h *SessionHandler) Devices(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	devices, err := h.svc.ListDevices(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DevicesEnvelope{Devices: devices})
}

// RevokeDevice signs another of the caller's devices out.
func (h *SessionHandler) RevokeDevice(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	if err := h.svc.Revoke(r.Context(), claims.UserID, chi.URLParam(r, "deviceId")); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "Device signed out.")
}

func toClaimsEnvelope(c *jwtinfra.Claims) ClaimsEnvelope {
	return ClaimsEnvelope{
		UserID:   c.UserID,
		Email:    c.Email,
		Name:     c.Name,
		Projects: nonNil(c.Projects),
		DeviceID: c.DeviceID,
	}
}
