package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/checkoff-auth/internal/domain"
	jwtinfra "github.com/checkoff-auth/internal/infrastructure/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) IssueTokens(ctx context.Context, u *domain.User, deviceID string) (*domain.Session, error) {
	args := m.Called(ctx, u, deviceID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionSvc) VerifyAccessToken(token string) (*jwtinfra.Claims, error) {
	args := m.Called(token)
	if c, _ := args.Get(0).(*jwtinfra.Claims); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionSvc) Refresh(ctx context.Context, userID, deviceID, refreshToken string) (*domain.Session, error) {
	args := m.Called(ctx, userID, deviceID, refreshToken)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionSvc) Revoke(ctx context.Context, userID, deviceID string) error {
	return m.Called(ctx, userID, deviceID).Error(0)
}

func (m *mockSessionSvc) ListDevices(ctx context.Context, userID string) ([]domain.Device, error) {
	args := m.Called(ctx, userID)
	devices, _ := args.Get(0).([]domain.Device)
	return devices, args.Error(1)
}

func TestSessionMe_ReturnsClaims(t *testing.T) {
	h := NewSessionHandler(&mockSessionSvc{})
	rr := httptest.NewRecorder()
	h.Me(rr, authedReq(http.MethodGet, "/v1/sessions/me", "u1", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp ClaimsEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, "alice@example.com", resp.Email)
	assert.Equal(t, "dev1", resp.DeviceID)
}

func TestSessionMe_MissingClaims(t *testing.T) {
	h := NewSessionHandler(&mockSessionSvc{})
	rr := httptest.NewRecorder()
	h.Me(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogout_RevokesCallerDevice(t *testing.T) {
	svc := &mockSessionSvc{}
	svc.On("Revoke", mock.Anything, "u1", "dev1").Return(nil)
	h := NewSessionHandler(svc)

	rr := httptest.NewRecorder()
	h.Logout(rr, authedReq(http.MethodPost, "/v1/sessions/logout", "u1", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestLogout_StoreFailure(t *testing.T) {
	svc := &mockSessionSvc{}
	svc.On("Revoke", mock.Anything, "u1", "dev1").Return(errors.New("timeout"))
	h := NewSessionHandler(svc)

	rr := httptest.NewRecorder()
	h.Logout(rr, authedReq(http.MethodPost, "/v1/sessions/logout", "u1", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "An unexpected error occurred", decodeError(t, rr).Reason)
}

func TestDevices_ListsCallerDevices(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := &mockSessionSvc{}
	svc.On("ListDevices", mock.Anything, "u1").Return([]domain.Device{{DeviceID: "phone", ExpiresAt: exp}}, nil)
	h := NewSessionHandler(svc)

	rr := httptest.NewRecorder()
	h.Devices(rr, authedReq(http.MethodGet, "/v1/sessions/devices", "u1", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"devices":[{"deviceId":"phone","expiresAt":"2030-01-01T00:00:00Z"}]}`, rr.Body.String())
}

func TestRevokeDevice_UsesPathDevice(t *testing.T) {
	svc := &mockSessionSvc{}
	svc.On("Revoke", mock.Anything, "u1", "tablet").Return(nil)
	h := NewSessionHandler(svc)

	r := authedReq(http.MethodDelete, "/v1/sessions/devices/tablet", "u1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("deviceId", "tablet")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	h.RevokeDevice(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}
