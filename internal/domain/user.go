package domain

import "strings"

// User account status. The only transition is unconfirmed -> active.
const (
	StatusUnconfirmed = "unconfirmed"
	StatusActive      = "active"
)

type User struct {
	UserID       string   `json:"userId" dynamodbav:"userId"`
	Email        string   `json:"email" dynamodbav:"email"`
	PasswordHash string   `json:"-" dynamodbav:"password"`
	Name         string   `json:"name" dynamodbav:"name"`
	Projects     []string `json:"projects" dynamodbav:"projects"`
	Status       string   `json:"status" dynamodbav:"status"`
}

// IsActive reports whether the account has been confirmed.
func (u *User) IsActive() bool { return u.Status == StatusActive }

// EmailLookup maps a normalized email to its owning user id. It is the
// uniqueness guard for emails.
type EmailLookup struct {
	Email  string `json:"email" dynamodbav:"email"`
	UserID string `json:"userId" dynamodbav:"userId"`
}

// NormalizeEmail lower-cases and trims an address; emails are compared case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
	Name     string `json:"name"`
}

type ConfirmRequest struct {
	UserID string `json:"userId" validate:"required"`
	OTP    string `json:"otp" validate:"required"`
}

type UpdateProfileRequest struct {
	Name     *string   `json:"name"`
	Projects *[]string `json:"projects"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,max=72"`
}

// UserUpdate is a partial update of a user's mutable fields. Nil fields are left untouched.
type UserUpdate struct {
	PasswordHash *string
	Name         *string
	Projects     *[]string
	Status       *string
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.PasswordHash == nil && u.Name == nil && u.Projects == nil && u.Status == nil
}
