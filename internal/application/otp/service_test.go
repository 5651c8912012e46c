package otp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/checkoff-auth/internal/domain"
	pkgtoken "github.com/checkoff-auth/internal/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, c *domain.OneTimeCode) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockStore) Get(ctx context.Context, userID, code string) (*domain.OneTimeCode, error) {
	args := m.Called(ctx, userID, code)
	if c, _ := args.Get(0).(*domain.OneTimeCode); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) Delete(ctx context.Context, userID, code string) error {
	return m.Called(ctx, userID, code).Error(0)
}

var fixedNow = time.Unix(1_700_000_000, 0)

func newService(st *mockStore) Service {
	return NewService(ServiceDeps{Store: st, Now: func() time.Time { return fixedNow }})
}

func TestCreateEntry_PersistsCodeWithDefaultTTL(t *testing.T) {
	st := &mockStore{}
	var saved *domain.OneTimeCode
	st.On("Put", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.OneTimeCode) }).
		Return(nil)

	code, err := newService(st).CreateEntry(context.Background(), "u1", domain.PurposeRegistration, 0)
	require.NoError(t, err)

	assert.Len(t, code, CodeLength)
	for _, r := range code {
		assert.True(t, strings.ContainsRune(pkgtoken.CodeAlphabet, r))
	}
	require.NotNil(t, saved)
	assert.Equal(t, "u1", saved.UserID)
	assert.Equal(t, code, saved.Code)
	assert.Equal(t, domain.PurposeRegistration, saved.Purpose)
	assert.Equal(t, fixedNow.Add(24*time.Hour).Unix(), saved.ExpiresAt)
}

func TestCreateEntry_CustomTTL(t *testing.T) {
	st := &mockStore{}
	st.On("Put", mock.Anything, mock.MatchedBy(func(c *domain.OneTimeCode) bool {
		return c.ExpiresAt == fixedNow.Add(10*time.Minute).Unix()
	})).Return(nil)

	_, err := newService(st).CreateEntry(context.Background(), "u1", "p", 10*time.Minute)
	require.NoError(t, err)
	st.AssertExpectations(t)
}

func TestCreateEntry_StoreError(t *testing.T) {
	st := &mockStore{}
	boom := errors.New("dynamo down")
	st.On("Put", mock.Anything, mock.Anything).Return(boom)

	_, err := newService(st).CreateEntry(context.Background(), "u1", "p", 0)
	assert.ErrorIs(t, err, boom)
}

func TestGetEntry_Valid(t *testing.T) {
	st := &mockStore{}
	entry := &domain.OneTimeCode{UserID: "u1", Code: "ABC234", Purpose: "p", ExpiresAt: fixedNow.Unix()}
	st.On("Get", mock.Anything, "u1", "ABC234").Return(entry, nil)

	got, err := newService(st).GetEntry(context.Background(), "u1", "ABC234")
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestGetEntry_MissingAndExpiredFailIdentically(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "u1", "NOPE22").Return(nil, domain.ErrNotFound)
	st.On("Get", mock.Anything, "u1", "OLD222").Return(&domain.OneTimeCode{
		UserID: "u1", Code: "OLD222", ExpiresAt: fixedNow.Unix() - 1,
	}, nil)
	svc := newService(st)

	_, errMissing := svc.GetEntry(context.Background(), "u1", "NOPE22")
	_, errExpired := svc.GetEntry(context.Background(), "u1", "OLD222")

	assert.ErrorIs(t, errMissing, domain.ErrOTPInvalid)
	assert.Equal(t, errMissing, errExpired)
}

func TestGetEntry_StoreFailureIsNotInvalid(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "u1", "ABC234").Return(nil, errors.New("timeout"))

	_, err := newService(st).GetEntry(context.Background(), "u1", "ABC234")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrOTPInvalid)
}

func TestDeleteEntry(t *testing.T) {
	st := &mockStore{}
	st.On("Delete", mock.Anything, "u1", "ABC234").Return(nil)

	require.NoError(t, newService(st).DeleteEntry(context.Background(), "u1", "ABC234"))
	st.AssertExpectations(t)
}
