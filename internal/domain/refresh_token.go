package domain

import "time"

// UnknownDeviceID stands in for a missing device id.
const UnknownDeviceID = "unknown"

// RefreshToken is the server-side record of a device's current refresh token.
// PK: userId, SK: deviceId. Only the hash is stored.
type RefreshToken struct {
	UserID      string `json:"userId" dynamodbav:"userId"`
	DeviceID    string `json:"deviceId" dynamodbav:"deviceId"`
	HashedToken string `json:"-" dynamodbav:"hashedRefreshToken"`
	ExpiresAt   int64  `json:"expiration" dynamodbav:"expiration"` // TTL (Unix seconds)
}

// ExpiredAt reports whether the record is past its expiry at t.
func (r *RefreshToken) ExpiredAt(t time.Time) bool {
	return t.Unix() > r.ExpiresAt
}

// DeviceOrUnknown returns id, or UnknownDeviceID when id is empty.
func DeviceOrUnknown(id string) string {
	if id == "" {
		return UnknownDeviceID
	}
	return id
}
