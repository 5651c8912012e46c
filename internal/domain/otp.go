package domain

import "time"

// OTP purposes.
const PurposeRegistration = "user registration"

// OneTimeCode is a short-lived code keyed by (UserID, Code).
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type OneTimeCode struct {
	UserID    string `json:"userId" dynamodbav:"userId"`
	Code      string `json:"otp" dynamodbav:"otp"`
	Purpose   string `json:"purpose" dynamodbav:"purpose"`
	ExpiresAt int64  `json:"expiration" dynamodbav:"expiration"`
}

// ExpiredAt reports whether the code is past its expiry at t. A code is still
// valid at exactly its expiry second.
func (c *OneTimeCode) ExpiredAt(t time.Time) bool {
	return t.Unix() > c.ExpiresAt
}
