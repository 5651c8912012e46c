package user

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/checkoff-auth/internal/domain"
	"github.com/checkoff-auth/internal/pkg/hasher"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, upd domain.UserUpdate) error {
	return m.Called(ctx, userID, upd).Error(0)
}

var testHasher = hasher.NewBcrypt(bcrypt.MinCost)

func newService(us *mockUserStore) Service {
	return NewService(ServiceDeps{UserRepo: us, Hasher: testHasher})
}

func ptr[T any](v T) *T { return &v }

// --- Get ---

func TestGet_NotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)

	_, err := newService(us).Get(context.Background(), "u1")
	assert.Equal(t, domain.ErrUserNotFound, err)
}

func TestGet_StoreError(t *testing.T) {
	us := &mockUserStore{}
	boom := errors.New("dynamo error")
	us.On("Get", mock.Anything, "u1").Return(nil, boom)

	_, err := newService(us).Get(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
}

// --- UpdateProfile ---

func TestUpdateProfile_EmptyRequest_ReturnsExistingUser(t *testing.T) {
	us := &mockUserStore{}
	existing := &domain.User{UserID: "u1", Name: "Alice"}
	us.On("Get", mock.Anything, "u1").Return(existing, nil)

	u, err := newService(us).UpdateProfile(context.Background(), "u1", domain.UpdateProfileRequest{})
	require.NoError(t, err)
	assert.Equal(t, existing, u)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfile_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	updated := &domain.User{UserID: "u1", Name: "Bob", Projects: []string{"p1", "p2"}}
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(u domain.UserUpdate) bool {
		return u.Name != nil && *u.Name == "Bob" && u.Projects != nil && len(*u.Projects) == 2 &&
			u.Status == nil && u.PasswordHash == nil
	})).Return(nil)
	us.On("Get", mock.Anything, "u1").Return(updated, nil)

	u, err := newService(us).UpdateProfile(context.Background(), "u1", domain.UpdateProfileRequest{
		Name:     ptr("Bob"),
		Projects: ptr([]string{"p1", "p2"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Name)
	us.AssertExpectations(t)
}

func TestUpdateProfile_MissingUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(domain.ErrNotFound)

	_, err := newService(us).UpdateProfile(context.Background(), "u1", domain.UpdateProfileRequest{Name: ptr("x")})
	assert.Equal(t, domain.ErrUserNotFound, err)
}

// --- ChangePassword ---

func TestChangePassword_WrongCurrent(t *testing.T) {
	us := &mockUserStore{}
	hash, err := testHasher.Hash("old")
	require.NoError(t, err)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", PasswordHash: hash}, nil)

	err = newService(us).ChangePassword(context.Background(), "u1", domain.ChangePasswordRequest{
		CurrentPassword: "nope", NewPassword: "new",
	})
	assert.Equal(t, domain.ErrInvalidCredentials, err)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_StoresNewHashOnly(t *testing.T) {
	us := &mockUserStore{}
	hash, err := testHasher.Hash("old")
	require.NoError(t, err)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", PasswordHash: hash, Status: domain.StatusActive}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(u domain.UserUpdate) bool {
		return u.PasswordHash != nil && testHasher.Verify("new", *u.PasswordHash) &&
			u.Status == nil && u.Name == nil && u.Projects == nil
	})).Return(nil)

	err = newService(us).ChangePassword(context.Background(), "u1", domain.ChangePasswordRequest{
		CurrentPassword: "old", NewPassword: "new",
	})
	require.NoError(t, err)
	us.AssertExpectations(t)
}

func TestChangePassword_MissingFields(t *testing.T) {
	err := newService(&mockUserStore{}).ChangePassword(context.Background(), "u1", domain.ChangePasswordRequest{CurrentPassword: "old"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Contains(t, err.Error(), "'newPassword'")
}
