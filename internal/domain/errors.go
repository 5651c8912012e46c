package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal error")
)

// Error is a caller-facing failure. Reason is safe to return to clients;
// Kind is one of the sentinels above and decides the status code.
type Error struct {
	Reason string
	Kind   error
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Kind }

// Auth failures. The reasons are deliberately low-detail.
var (
	ErrInvalidCredentials     = &Error{Reason: "Invalid credentials", Kind: ErrUnauthorized}
	ErrInvalidRefreshToken    = &Error{Reason: "Refresh token invalid", Kind: ErrUnauthorized}
	ErrConfirmationFailed     = &Error{Reason: "Account confirmation failed, OTP invalid / expired.", Kind: ErrUnauthorized}
	ErrUnauthenticated        = &Error{Reason: "Invalid/expired authentication token", Kind: ErrUnauthorized}
	ErrAccountNotConfirmed    = &Error{Reason: "Account has not been confirmed, please use the emailed link.", Kind: ErrUnauthorized}
	ErrEmailAlreadyRegistered = &Error{Reason: "Email has already been registered.", Kind: ErrConflict}
	ErrOTPInvalid             = &Error{Reason: "Invalid OTP", Kind: ErrNotFound}
	ErrUserNotFound           = &Error{Reason: "User not found", Kind: ErrNotFound}
	ErrUnexpected             = &Error{Reason: "An unexpected error occurred", Kind: ErrInternal}
)

// Validation wraps a request-shape failure so it maps to ErrBadRequest.
func Validation(reason string) error {
	return &Error{Reason: reason, Kind: ErrBadRequest}
}

// ReasonOf returns the caller-facing reason carried by err, or "" when err
// carries none.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
