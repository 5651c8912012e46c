package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/checkoff-auth/internal/domain"
	"github.com/checkoff-auth/internal/pkg/errutil"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorEnvelope is written for every failed request.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
	Error   string `json:"error,omitempty"`
}

// SessionEnvelope wraps login and refresh responses.
type SessionEnvelope struct {
	UserID                 string   `json:"userId"`
	Email                  string   `json:"email"`
	Name                   string   `json:"name"`
	Projects               []string `json:"projects"`
	AuthToken              string   `json:"authToken"`
	AuthTokenExpiration    string   `json:"authTokenExpiration"`
	RefreshToken           string   `json:"refreshToken"`
	RefreshTokenExpiration string   `json:"refreshTokenExpiration"`
	DeviceID               string   `json:"deviceId"`
}

// ProfileEnvelope is the client view of a user; the password hash never leaves the service.
type ProfileEnvelope struct {
	UserID   string   `json:"userId"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Projects []string `json:"projects"`
	Status   string   `json:"status"`
}

func toSessionEnvelope(s *domain.Session) SessionEnvelope {
	return SessionEnvelope{
		UserID:                 s.UserID,
		Email:                  s.Email,
		Name:                   s.Name,
		Projects:               nonNil(s.Projects),
		AuthToken:              s.AuthToken,
		AuthTokenExpiration:    formatTTL(s.AuthTokenTTL),
		RefreshToken:           s.RefreshToken,
		RefreshTokenExpiration: formatTTL(s.RefreshTokenTTL),
		DeviceID:               s.DeviceID,
	}
}

func toProfileEnvelope(u *domain.User) ProfileEnvelope {
	return ProfileEnvelope{
		UserID:   u.UserID,
		Email:    u.Email,
		Name:     u.Name,
		Projects: nonNil(u.Projects),
		Status:   u.Status,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// formatTTL renders a lifetime in the largest whole unit ("15m", "30d").
// A zero lifetime is "0h", which clients read as "refresh token not stored".
func formatTTL(d time.Duration) string {
	day := 24 * time.Hour
	switch {
	case d <= 0:
		return "0h"
	case d%day == 0:
		return fmt.Sprintf("%dd", d/day)
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: msg})
}

// writeError maps err to a status code and the failure envelope. Errors without
// a caller-facing reason are logged and reported generically.
func writeError(w http.ResponseWriter, err error) {
	reason := domain.ReasonOf(err)
	if reason == "" {
		errutil.LogError(nil, "unhandled request error", err)
		reason = domain.ErrUnexpected.Reason
	}
	writeJSON(w, statusFor(err), ErrorEnvelope{Reason: reason})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

const maxBodyBytes = 1 << 20

var (
	errEmptyBody   = domain.Validation("Request body cannot be empty.")
	errInvalidBody = domain.Validation("Request body must be valid JSON.")
)

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return errInvalidBody
	}
	return nil
}
