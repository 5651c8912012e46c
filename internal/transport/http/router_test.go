package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/checkoff-auth/internal/application/auth"
	"github.com/checkoff-auth/internal/application/otp"
	"github.com/checkoff-auth/internal/application/session"
	"github.com/checkoff-auth/internal/application/user"
	"github.com/checkoff-auth/internal/config"
	jwtinfra "github.com/checkoff-auth/internal/infrastructure/jwt"
	"github.com/checkoff-auth/internal/infrastructure/memory"
	"github.com/checkoff-auth/internal/observability"
	"github.com/checkoff-auth/internal/pkg/hasher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type linkRecorder struct {
	mu    sync.Mutex
	links []string
}

func (l *linkRecorder) SendRegistrationConfirmation(_ context.Context, _ string, link string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.links = append(l.links, link)
	return nil
}

func (l *linkRecorder) last(t *testing.T) *url.URL {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotEmpty(t, l.links)
	u, err := url.Parse(l.links[len(l.links)-1])
	require.NoError(t, err)
	return u
}

func newTestServer(t *testing.T, cfg *config.Config) (http.Handler, *linkRecorder) {
	t.Helper()
	store := memory.New()
	h := hasher.NewBcrypt(bcrypt.MinCost)
	links := &linkRecorder{}
	reg := prometheus.NewRegistry()

	sessions := session.NewService(session.ServiceDeps{
		Tokens:     store.RefreshTokens(),
		Users:      store.Users(),
		Signer:     jwtinfra.NewHMAC([]byte("router-secret"), 15*time.Minute),
		Hasher:     h,
		RefreshTTL: 30 * 24 * time.Hour,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		Users:      store.Users(),
		Lookups:    store.EmailLookups(),
		OTP:        otp.NewService(otp.ServiceDeps{Store: store.OTPs()}),
		Sessions:   sessions,
		Notifier:   links,
		Hasher:     h,
		Metrics:    observability.NewMetrics(reg),
		ClientHost: "https://app.example.com",
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	router := NewRouter(ctx, cfg, &Deps{
		Auth:     authSvc,
		Sessions: sessions,
		Users:    user.NewService(user.ServiceDeps{UserRepo: store.Users(), Hasher: h}),
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return router, links
}

func testConfig() *config.Config {
	return &config.Config{RateLimitRPS: 100, RateLimitBurst: 100}
}

func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func TestRouter_AccountLifecycle(t *testing.T) {
	srv, links := newTestServer(t, testConfig())

	rr := do(t, srv, http.MethodPost, "/v1/register", "", map[string]string{
		"email": "Alice@Example.com", "password": "s3cret", "name": "Alice",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	link := links.last(t)
	userID := link.Path[1 : len(link.Path)-len("/confirm")]
	rr = do(t, srv, http.MethodPost, "/v1/confirm", "", map[string]string{
		"userId": userID, "otp": link.Query().Get("token"),
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodPost, "/v1/login", "", map[string]string{
		"email": "alice@example.com", "password": "s3cret", "deviceId": "phone",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	login := decode(t, rr)
	assert.Equal(t, userID, login["userId"])
	assert.Equal(t, "phone", login["deviceId"])
	assert.Equal(t, "15m", login["authTokenExpiration"])
	assert.Equal(t, "30d", login["refreshTokenExpiration"])
	access := login["authToken"].(string)

	rr = do(t, srv, http.MethodGet, "/v1/users/me", access, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "active", decode(t, rr)["status"])

	rr = do(t, srv, http.MethodPost, "/v1/refresh-token", "", map[string]string{
		"userId": userID, "refreshToken": login["refreshToken"].(string), "deviceId": "phone",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	refreshed := decode(t, rr)

	rr = do(t, srv, http.MethodGet, "/v1/sessions/devices", access, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"deviceId":"phone"`)

	rr = do(t, srv, http.MethodPost, "/v1/sessions/logout", refreshed["authToken"].(string), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodPost, "/v1/refresh-token", "", map[string]string{
		"userId": userID, "refreshToken": refreshed["refreshToken"].(string), "deviceId": "phone",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Refresh token invalid", decode(t, rr)["reason"])
}

func TestRouter_ProtectedRoutesNeedToken(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	for _, path := range []string{"/v1/sessions/me", "/v1/users/me"} {
		rr := do(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rr := do(t, srv, http.MethodGet, "/v1/health-check/ping", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	do(t, srv, http.MethodPost, "/v1/login", "", map[string]string{"email": "x@y.z", "password": "pw"})
	rr = do(t, srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `auth_operations_total{operation="login",outcome="unauthorized"} 1`)
}

func TestRouter_RateLimitsSensitiveRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	srv, _ := newTestServer(t, cfg)

	first := do(t, srv, http.MethodPost, "/v1/login", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, first.Code)
	second := do(t, srv, http.MethodPost, "/v1/login", "", map[string]string{})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Health checks are not limited.
	rr := do(t, srv, http.MethodGet, "/v1/health-check/ping", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_CORSOnlyWithOrigin(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))

	cfg := testConfig()
	cfg.AllowedOrigin = "https://app.example.com"
	srv, _ = newTestServer(t, cfg)
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
