package domain

import "time"

// Session is the token pair handed to a client after login or refresh,
// together with the user claims the access token carries.
type Session struct {
	UserID          string
	Email           string
	Name            string
	Projects        []string
	DeviceID        string
	AuthToken       string
	AuthTokenTTL    time.Duration
	RefreshToken    string
	RefreshTokenTTL time.Duration // zero when the refresh token could not be persisted
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	DeviceID string `json:"deviceId"`
}

type RefreshRequest struct {
	UserID       string `json:"userId" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
	DeviceID     string `json:"deviceId"`
}
