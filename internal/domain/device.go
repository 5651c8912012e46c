package domain

import "time"

// Device is a client that currently holds a live refresh token.
type Device struct {
	DeviceID  string    `json:"deviceId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
