package user

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"github.com/checkoff-auth/internal/domain"
	"github.com/checkoff-auth/internal/pkg/hasher"
	"github.com/checkoff-auth/internal/pkg/validate"
)

// Service manages the signed-in user's own profile.
type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	// UpdateProfile applies the set fields of req. An empty request returns the current user.
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error)
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, upd domain.UserUpdate) error
}

type service struct {
	repo   userStore
	hasher hasher.Hasher
}

type ServiceDeps struct {
	UserRepo userStore
	Hasher   hasher.Hasher
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo, hasher: deps.Hasher}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, oops.Code("USER_READ_FAILED").With("user_id", userID).Wrap(err)
	}
	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error) {
	upd := domain.UserUpdate{Name: req.Name, Projects: req.Projects}
	if upd.IsEmpty() {
		return s.Get(ctx, userID)
	}
	if err := s.repo.Update(ctx, userID, upd); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, oops.Code("USER_UPDATE_FAILED").With("user_id", userID).Wrap(err)
	}
	return s.Get(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return domain.Validation(err.Error())
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(req.CurrentPassword, u.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return oops.Code("PASSWORD_HASH_FAILED").With("user_id", userID).Wrap(err)
	}
	if err := s.repo.Update(ctx, userID, domain.UserUpdate{PasswordHash: &hash}); err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", userID).Wrap(err)
	}
	return nil
}
