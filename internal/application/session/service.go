package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/oops"

	"github.com/checkoff-auth/internal/domain"
	jwtinfra "github.com/checkoff-auth/internal/infrastructure/jwt"
	"github.com/checkoff-auth/internal/pkg/errutil"
	"github.com/checkoff-auth/internal/pkg/hasher"
	pkgtoken "github.com/checkoff-auth/internal/pkg/token"
)

// TokenStore is the refresh token table, one record per (user, device).
// Get must return domain.ErrNotFound for missing and expired records.
type TokenStore interface {
	Put(ctx context.Context, t *domain.RefreshToken) error
	Get(ctx context.Context, userID, deviceID string) (*domain.RefreshToken, error)
	Delete(ctx context.Context, userID, deviceID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.RefreshToken, error)
}

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Signer issues and checks access tokens.
type Signer interface {
	Sign(c jwtinfra.Claims) (string, error)
	Verify(token string) (*jwtinfra.Claims, error)
	Expiry() time.Duration
}

type Service interface {
	// IssueTokens signs an access token and rotates the device's refresh token.
	// If the refresh token cannot be stored the session is still returned,
	// with RefreshTokenTTL zero.
	IssueTokens(ctx context.Context, u *domain.User, deviceID string) (*domain.Session, error)
	// VerifyAccessToken fails with domain.ErrUnauthenticated for any bad token.
	VerifyAccessToken(token string) (*jwtinfra.Claims, error)
	// Refresh exchanges a refresh token for a new pair. Every lookup or
	// verification failure is domain.ErrInvalidRefreshToken.
	Refresh(ctx context.Context, userID, deviceID, refreshToken string) (*domain.Session, error)
	// Revoke drops the device's refresh token.
	Revoke(ctx context.Context, userID, deviceID string) error
	// ListDevices returns the devices that hold a live refresh token for userID.
	ListDevices(ctx context.Context, userID string) ([]domain.Device, error)
}

type ServiceDeps struct {
	Tokens     TokenStore
	Users      UserStore
	Signer     Signer
	Hasher     hasher.Hasher
	RefreshTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

type service struct {
	tokens     TokenStore
	users      UserStore
	signer     Signer
	hasher     hasher.Hasher
	refreshTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		tokens:     deps.Tokens,
		users:      deps.Users,
		signer:     deps.Signer,
		hasher:     deps.Hasher,
		refreshTTL: deps.RefreshTTL,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) IssueTokens(ctx context.Context, u *domain.User, deviceID string) (*domain.Session, error) {
	deviceID = domain.DeviceOrUnknown(deviceID)
	errb := oops.With("user_id", u.UserID, "device_id", deviceID)

	authToken, err := s.signer.Sign(jwtinfra.Claims{
		UserID:   u.UserID,
		Email:    u.Email,
		Name:     u.Name,
		Projects: u.Projects,
		DeviceID: deviceID,
	})
	if err != nil {
		return nil, errb.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, errb.Code("TOKEN_GENERATE_FAILED").Wrap(err)
	}

	sess := &domain.Session{
		UserID:          u.UserID,
		Email:           u.Email,
		Name:            u.Name,
		Projects:        u.Projects,
		DeviceID:        deviceID,
		AuthToken:       authToken,
		AuthTokenTTL:    s.signer.Expiry(),
		RefreshToken:    refreshToken,
		RefreshTokenTTL: s.refreshTTL,
	}

	if err := s.storeRefreshToken(ctx, u.UserID, deviceID, refreshToken); err != nil {
		// The client can keep using the access token until it expires.
		errutil.LogWarn(s.logger, "refresh token not stored, issuing access-only session",
			errb.Code("REFRESH_TOKEN_STORE_FAILED").Wrap(err))
		sess.RefreshTokenTTL = 0
	}
	return sess, nil
}

func (s *service) storeRefreshToken(ctx context.Context, userID, deviceID, token string) error {
	hashed, err := s.hasher.Hash(token)
	if err != nil {
		return err
	}
	return s.tokens.Put(ctx, &domain.RefreshToken{
		UserID:      userID,
		DeviceID:    deviceID,
		HashedToken: hashed,
		ExpiresAt:   s.now().Add(s.refreshTTL).Unix(),
	})
}

func (s *service) VerifyAccessToken(token string) (*jwtinfra.Claims, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	return claims, nil
}

func (s *service) Refresh(ctx context.Context, userID, deviceID, refreshToken string) (*domain.Session, error) {
	deviceID = domain.DeviceOrUnknown(deviceID)

	stored, err := s.tokens.Get(ctx, userID, deviceID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("refresh token lookup failed", "user_id", userID, "device_id", deviceID, "err", err)
		}
		return nil, domain.ErrInvalidRefreshToken
	}
	if stored.ExpiredAt(s.now()) || !s.hasher.Verify(refreshToken, stored.HashedToken) {
		return nil, domain.ErrInvalidRefreshToken
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("user lookup during refresh failed", "user_id", userID, "err", err)
		}
		return nil, domain.ErrInvalidRefreshToken
	}
	return s.IssueTokens(ctx, u, deviceID)
}

func (s *service) Revoke(ctx context.Context, userID, deviceID string) error {
	deviceID = domain.DeviceOrUnknown(deviceID)
	if err := s.tokens.Delete(ctx, userID, deviceID); err != nil {
		return oops.Code("REFRESH_TOKEN_REVOKE_FAILED").
			With("user_id", userID, "device_id", deviceID).
			Wrap(err)
	}
	return nil
}

func (s *service) ListDevices(ctx context.Context, userID string) ([]domain.Device, error) {
	tokens, err := s.tokens.ListByUser(ctx, userID)
	if err != nil {
		return nil, oops.Code("DEVICE_LIST_FAILED").With("user_id", userID).Wrap(err)
	}
	now := s.now()
	devices := make([]domain.Device, 0, len(tokens))
	for _, t := range tokens {
		if t.ExpiredAt(now) {
			continue
		}
		devices = append(devices, domain.Device{DeviceID: t.DeviceID, ExpiresAt: time.Unix(t.ExpiresAt, 0).UTC()})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].DeviceID < devices[j].DeviceID })
	return devices, nil
}
