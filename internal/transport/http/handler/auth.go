package handler

import (
	"net/http"

	"github.com/checkoff-auth/internal/application/auth"
	"github.com/checkoff-auth/internal/domain"
)

const (
	msgRegistered = "Registration successful, please confirm using the emailed link in order to activate your account."
	msgConfirmed  = "Account confirmation succeeded."
)

// AuthHandler serves the public account endpoints: register, confirm, login and refresh.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	// The user id is not returned; the response must read the same for new and retried emails.
	if _, err := h.svc.Register(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, msgRegistered)
}

func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.Confirm(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, msgConfirmed)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionEnvelope(sess))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.svc.RefreshSession(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionEnvelope(sess))
}
