package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/checkoff-auth/internal/domain"
	"github.com/checkoff-auth/internal/observability"
	"github.com/checkoff-auth/internal/pkg/errutil"
	"github.com/checkoff-auth/internal/pkg/hasher"
	"github.com/checkoff-auth/internal/pkg/id"
	"github.com/checkoff-auth/internal/pkg/validate"
)

// Operation names, used as the metrics label.
const (
	OpRegister = "register"
	OpConfirm  = "confirm"
	OpLogin    = "login"
	OpRefresh  = "refresh"
)

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, upd domain.UserUpdate) error
}

type LookupStore interface {
	Create(ctx context.Context, l *domain.EmailLookup) error
	Get(ctx context.Context, email string) (*domain.EmailLookup, error)
}

type OTPService interface {
	CreateEntry(ctx context.Context, userID, purpose string, ttl time.Duration) (string, error)
	GetEntry(ctx context.Context, userID, code string) (*domain.OneTimeCode, error)
	DeleteEntry(ctx context.Context, userID, code string) error
}

type SessionService interface {
	IssueTokens(ctx context.Context, u *domain.User, deviceID string) (*domain.Session, error)
	Refresh(ctx context.Context, userID, deviceID, refreshToken string) (*domain.Session, error)
}

type Notifier interface {
	SendRegistrationConfirmation(ctx context.Context, email, link string) error
}

// Service runs the account lifecycle. Every error it returns is a
// *domain.Error; unexpected failures are logged and reported as
// domain.ErrUnexpected.
type Service interface {
	// Register creates an unconfirmed account, or reuses the pending one for
	// the same email, and mails a confirmation link. It returns the user id.
	Register(ctx context.Context, req domain.RegisterRequest) (string, error)
	Confirm(ctx context.Context, req domain.ConfirmRequest) error
	Login(ctx context.Context, req domain.LoginRequest) (*domain.Session, error)
	RefreshSession(ctx context.Context, req domain.RefreshRequest) (*domain.Session, error)
}

type ServiceDeps struct {
	Users              UserStore
	Lookups            LookupStore
	OTP                OTPService
	Sessions           SessionService
	Notifier           Notifier
	Hasher             hasher.Hasher
	Metrics            *observability.Metrics
	Logger             *slog.Logger
	ClientHost         string
	OTPTTL             time.Duration
	RequireActiveLogin bool
	// LookupRetry builds the backoff for the email lookup write. Backoffs
	// are stateful, so a fresh one is built per registration.
	LookupRetry func() retry.Backoff
}

type service struct {
	users              UserStore
	lookups            LookupStore
	otp                OTPService
	sessions           SessionService
	notifier           Notifier
	hasher             hasher.Hasher
	metrics            *observability.Metrics
	logger             *slog.Logger
	clientHost         string
	otpTTL             time.Duration
	requireActiveLogin bool
	lookupRetry        func() retry.Backoff

	dummyOnce sync.Once
	dummyHash string
}

func defaultLookupRetry() retry.Backoff {
	return retry.WithMaxRetries(2, retry.NewExponential(50*time.Millisecond))
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:              deps.Users,
		lookups:            deps.Lookups,
		otp:                deps.OTP,
		sessions:           deps.Sessions,
		notifier:           deps.Notifier,
		hasher:             deps.Hasher,
		metrics:            deps.Metrics,
		logger:             deps.Logger,
		clientHost:         deps.ClientHost,
		otpTTL:             deps.OTPTTL,
		requireActiveLogin: deps.RequireActiveLogin,
		lookupRetry:        deps.LookupRetry,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.lookupRetry == nil {
		s.lookupRetry = defaultLookupRetry
	}
	return s
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (string, error) {
	start := time.Now()
	userID, err := s.register(ctx, req)
	return userID, s.finish(OpRegister, start, err)
}

func (s *service) register(ctx context.Context, req domain.RegisterRequest) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", domain.Validation(err.Error())
	}
	email := domain.NormalizeEmail(req.Email)

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return "", oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}

	userID, err := s.pendingUserID(ctx, email)
	if err != nil {
		return "", err
	}
	if userID == "" {
		userID, err = s.createUser(ctx, email, hash, req.Name)
		if err != nil {
			return "", err
		}
	}

	code, err := s.otp.CreateEntry(ctx, userID, domain.PurposeRegistration, s.otpTTL)
	if err != nil {
		return "", oops.Code("OTP_CREATE_FAILED").With("user_id", userID).Wrap(err)
	}
	if err := s.notifier.SendRegistrationConfirmation(ctx, email, s.confirmationLink(userID, code)); err != nil {
		return "", oops.Code("CONFIRMATION_SEND_FAILED").With("user_id", userID).Wrap(err)
	}
	return userID, nil
}

// pendingUserID resolves an existing registration for email. It returns ""
// when the email is free, the user id when the account is still unconfirmed,
// and domain.ErrEmailAlreadyRegistered when it is active.
func (s *service) pendingUserID(ctx context.Context, email string) (string, error) {
	l, err := s.lookups.Get(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", oops.Code("LOOKUP_READ_FAILED").Wrap(err)
	}
	u, err := s.users.Get(ctx, l.UserID)
	if err != nil {
		code := "USER_READ_FAILED"
		if errors.Is(err, domain.ErrNotFound) {
			code = "DANGLING_EMAIL_LOOKUP"
		}
		return "", oops.Code(code).With("user_id", l.UserID).Wrap(err)
	}
	if u.IsActive() {
		return "", domain.ErrEmailAlreadyRegistered
	}
	return u.UserID, nil
}

// createUser writes the user and then claims its email. The two writes are
// not atomic: if the claim never lands the user is orphaned.
func (s *service) createUser(ctx context.Context, email, hash, name string) (string, error) {
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Projects:     []string{},
		Status:       domain.StatusUnconfirmed,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", oops.Code("USER_WRITE_FAILED").With("user_id", u.UserID).Wrap(err)
	}

	lookup := &domain.EmailLookup{Email: email, UserID: u.UserID}
	err := retry.Do(ctx, s.lookupRetry(), func(ctx context.Context) error {
		err := s.lookups.Create(ctx, lookup)
		if err == nil || errors.Is(err, domain.ErrConflict) {
			return err
		}
		return retry.RetryableError(err)
	})
	switch {
	case err == nil:
		return u.UserID, nil
	case errors.Is(err, domain.ErrConflict):
		// A concurrent registration claimed the email first; defer to it.
		s.logger.Warn("email claimed concurrently, user orphaned", "user_id", u.UserID)
		existing, rerr := s.pendingUserID(ctx, email)
		if rerr != nil {
			return "", rerr
		}
		if existing == "" {
			return "", oops.Code("LOOKUP_VANISHED").With("user_id", u.UserID).Errorf("email lookup conflict but no entry")
		}
		return existing, nil
	default:
		s.logger.Warn("email lookup not written, user orphaned", "user_id", u.UserID, "err", err)
		return "", oops.Code("LOOKUP_WRITE_FAILED").With("user_id", u.UserID).Wrap(err)
	}
}

func (s *service) confirmationLink(userID, code string) string {
	return fmt.Sprintf("%s/%s/confirm?token=%s", s.clientHost, url.PathEscape(userID), url.QueryEscape(code))
}

func (s *service) Confirm(ctx context.Context, req domain.ConfirmRequest) error {
	start := time.Now()
	return s.finish(OpConfirm, start, s.confirm(ctx, req))
}

func (s *service) confirm(ctx context.Context, req domain.ConfirmRequest) error {
	if err := validate.Struct(req); err != nil {
		return domain.Validation(err.Error())
	}

	entry, err := s.otp.GetEntry(ctx, req.UserID, req.OTP)
	if errors.Is(err, domain.ErrOTPInvalid) {
		return domain.ErrConfirmationFailed
	}
	if err != nil {
		return oops.Code("OTP_READ_FAILED").With("user_id", req.UserID).Wrap(err)
	}
	if entry.Purpose != domain.PurposeRegistration {
		s.logger.Info("otp purpose mismatch", "user_id", req.UserID, "purpose", entry.Purpose)
		return domain.ErrConfirmationFailed
	}

	// The code is consumed whether or not activation succeeds.
	defer s.deleteOTP(ctx, req.UserID, req.OTP)

	u, err := s.users.Get(ctx, req.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrConfirmationFailed
	}
	if err != nil {
		return oops.Code("USER_READ_FAILED").With("user_id", req.UserID).Wrap(err)
	}
	if u.IsActive() {
		return nil
	}

	active := domain.StatusActive
	if err := s.users.Update(ctx, u.UserID, domain.UserUpdate{Status: &active}); err != nil {
		return oops.Code("USER_ACTIVATE_FAILED").With("user_id", u.UserID).Wrap(err)
	}
	return nil
}

func (s *service) deleteOTP(ctx context.Context, userID, code string) {
	if err := s.otp.DeleteEntry(ctx, userID, code); err != nil {
		s.logger.Warn("otp deletion failed", "user_id", userID, "err", err)
	}
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.Session, error) {
	start := time.Now()
	sess, err := s.login(ctx, req)
	return sess, s.finish(OpLogin, start, err)
}

func (s *service) login(ctx context.Context, req domain.LoginRequest) (*domain.Session, error) {
	if err := validate.Struct(req); err != nil {
		return nil, domain.Validation(err.Error())
	}

	u, err := s.userByEmail(ctx, domain.NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		// Spend the same hashing time as a real check.
		s.hasher.Verify(req.Password, s.dummy())
		return nil, domain.ErrInvalidCredentials
	}
	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if s.requireActiveLogin && !u.IsActive() {
		return nil, domain.ErrAccountNotConfirmed
	}

	sess, err := s.sessions.IssueTokens(ctx, u, req.DeviceID)
	if err != nil {
		return nil, oops.Code("TOKEN_ISSUE_FAILED").With("user_id", u.UserID).Wrap(err)
	}
	return sess, nil
}

// userByEmail returns nil, nil when no account owns email.
func (s *service) userByEmail(ctx context.Context, email string) (*domain.User, error) {
	l, err := s.lookups.Get(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("LOOKUP_READ_FAILED").Wrap(err)
	}
	u, err := s.users.Get(ctx, l.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("USER_READ_FAILED").With("user_id", l.UserID).Wrap(err)
	}
	return u, nil
}

func (s *service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("timing-equaliser")
	})
	return s.dummyHash
}

func (s *service) RefreshSession(ctx context.Context, req domain.RefreshRequest) (*domain.Session, error) {
	start := time.Now()
	sess, err := s.refresh(ctx, req)
	return sess, s.finish(OpRefresh, start, err)
}

func (s *service) refresh(ctx context.Context, req domain.RefreshRequest) (*domain.Session, error) {
	if err := validate.Struct(req); err != nil {
		return nil, domain.Validation(err.Error())
	}
	sess, err := s.sessions.Refresh(ctx, req.UserID, req.DeviceID, req.RefreshToken)
	if err != nil && !errors.Is(err, domain.ErrInvalidRefreshToken) {
		return nil, oops.Code("REFRESH_FAILED").With("user_id", req.UserID).Wrap(err)
	}
	return sess, err
}

// finish converts anything that is not a caller-facing error into
// domain.ErrUnexpected and records the outcome.
func (s *service) finish(op string, start time.Time, err error) error {
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			err = de
		} else {
			errutil.LogError(s.logger, op+" failed", err)
			err = domain.ErrUnexpected
		}
	}
	s.metrics.Record(op, outcome(err), time.Since(start))
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeSuccess
	case errors.Is(err, domain.ErrBadRequest):
		return observability.OutcomeInvalid
	case errors.Is(err, domain.ErrUnauthorized):
		return observability.OutcomeUnauthorized
	case errors.Is(err, domain.ErrConflict):
		return observability.OutcomeConflict
	default:
		return observability.OutcomeError
	}
}
