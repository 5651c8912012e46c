// Package memory is an in-process Record Store with the same semantics as the
// DynamoDB adapter: conditional creates, partial updates, and readers that
// treat expired OTP and refresh token records as absent.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/checkoff-auth/internal/domain"
)

type pairKey struct{ a, b string }

// Store holds all four tables behind one lock.
type Store struct {
	mu            sync.RWMutex
	now           func() time.Time
	users         map[string]domain.User
	lookups       map[string]domain.EmailLookup
	otps          map[pairKey]domain.OneTimeCode
	refreshTokens map[pairKey]domain.RefreshToken
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:           time.Now,
		users:         make(map[string]domain.User),
		lookups:       make(map[string]domain.EmailLookup),
		otps:          make(map[pairKey]domain.OneTimeCode),
		refreshTokens: make(map[pairKey]domain.RefreshToken),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Users() *UserRepo                 { return &UserRepo{s} }
func (s *Store) EmailLookups() *EmailLookupRepo   { return &EmailLookupRepo{s} }
func (s *Store) OTPs() *OTPRepo                   { return &OTPRepo{s} }
func (s *Store) RefreshTokens() *RefreshTokenRepo { return &RefreshTokenRepo{s} }

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.UserID]; ok {
		return fmt.Errorf("user %s exists: %w", u.UserID, domain.ErrConflict)
	}
	r.s.users[u.UserID] = cloneUser(*u)
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	u = cloneUser(u)
	return &u, nil
}

func (r *UserRepo) Update(ctx context.Context, userID string, upd domain.UserUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if upd.IsEmpty() {
		return errors.New("no fields to update")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Projects != nil {
		u.Projects = append([]string{}, (*upd.Projects)...)
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	r.s.users[userID] = u
	return nil
}

type EmailLookupRepo struct{ s *Store }

func (r *EmailLookupRepo) Create(ctx context.Context, l *domain.EmailLookup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lookups[l.Email]; ok {
		return fmt.Errorf("email already claimed: %w", domain.ErrConflict)
	}
	r.s.lookups[l.Email] = *l
	return nil
}

func (r *EmailLookupRepo) Get(ctx context.Context, email string) (*domain.EmailLookup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.lookups[email]
	if !ok {
		return nil, fmt.Errorf("email lookup not found: %w", domain.ErrNotFound)
	}
	return &l, nil
}

type OTPRepo struct{ s *Store }

func (r *OTPRepo) Put(ctx context.Context, c *domain.OneTimeCode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.otps[pairKey{c.UserID, c.Code}] = *c
	return nil
}

func (r *OTPRepo) Get(ctx context.Context, userID, code string) (*domain.OneTimeCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.otps[pairKey{userID, code}]
	if !ok || c.ExpiredAt(r.s.now()) {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	return &c, nil
}

func (r *OTPRepo) Delete(ctx context.Context, userID, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.otps, pairKey{userID, code})
	return nil
}

type RefreshTokenRepo struct{ s *Store }

func (r *RefreshTokenRepo) Put(ctx context.Context, t *domain.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.refreshTokens[pairKey{t.UserID, t.DeviceID}] = *t
	return nil
}

func (r *RefreshTokenRepo) Get(ctx context.Context, userID, deviceID string) (*domain.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.refreshTokens[pairKey{userID, deviceID}]
	if !ok || t.ExpiredAt(r.s.now()) {
		return nil, fmt.Errorf("refresh token not found: %w", domain.ErrNotFound)
	}
	return &t, nil
}

func (r *RefreshTokenRepo) Delete(ctx context.Context, userID, deviceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.refreshTokens, pairKey{userID, deviceID})
	return nil
}

// ListByUser returns userID's unexpired records ordered by device id.
func (r *RefreshTokenRepo) ListByUser(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	now := r.s.now()
	var tokens []domain.RefreshToken
	for k, t := range r.s.refreshTokens {
		if k.a == userID && !t.ExpiredAt(now) {
			tokens = append(tokens, t)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].DeviceID < tokens[j].DeviceID })
	return tokens, nil
}

func cloneUser(u domain.User) domain.User {
	if u.Projects != nil {
		u.Projects = append([]string{}, u.Projects...)
	}
	return u
}
