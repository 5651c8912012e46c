package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/checkoff-auth/internal/domain"
	pkgtoken "github.com/checkoff-auth/internal/pkg/token"
)

const (
	CodeLength = 6
	DefaultTTL = 24 * time.Hour
)

// Store is the OTP table. Get must return domain.ErrNotFound for missing and expired codes.
type Store interface {
	Put(ctx context.Context, c *domain.OneTimeCode) error
	Get(ctx context.Context, userID, code string) (*domain.OneTimeCode, error)
	Delete(ctx context.Context, userID, code string) error
}

type Service interface {
	// CreateEntry issues a new code. Earlier codes for the same user stay valid.
	// A non-positive ttl means DefaultTTL.
	CreateEntry(ctx context.Context, userID, purpose string, ttl time.Duration) (string, error)
	// GetEntry fails with domain.ErrOTPInvalid whether the code is unknown or expired.
	GetEntry(ctx context.Context, userID, code string) (*domain.OneTimeCode, error)
	DeleteEntry(ctx context.Context, userID, code string) error
}

type ServiceDeps struct {
	Store      Store
	DefaultTTL time.Duration
	Now        func() time.Time
}

type service struct {
	store      Store
	defaultTTL time.Duration
	now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{store: deps.Store, defaultTTL: deps.DefaultTTL, now: deps.Now}
	if s.defaultTTL <= 0 {
		s.defaultTTL = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) CreateEntry(ctx context.Context, userID, purpose string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	code, err := pkgtoken.NewCode(CodeLength)
	if err != nil {
		return "", err
	}
	entry := &domain.OneTimeCode{
		UserID:    userID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(ttl).Unix(),
	}
	if err := s.store.Put(ctx, entry); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

func (s *service) GetEntry(ctx context.Context, userID, code string) (*domain.OneTimeCode, error) {
	entry, err := s.store.Get(ctx, userID, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrOTPInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("load otp: %w", err)
	}
	if entry.ExpiredAt(s.now()) {
		return nil, domain.ErrOTPInvalid
	}
	return entry, nil
}

func (s *service) DeleteEntry(ctx context.Context, userID, code string) error {
	if err := s.store.Delete(ctx, userID, code); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}
