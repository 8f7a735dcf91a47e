package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driverevents-backend/internal/models"
)

type fakeTokenResolver struct {
	drivers map[string]models.Driver
}

func (f *fakeTokenResolver) FindByToken(token string) (models.Driver, error) {
	d, ok := f.drivers[token]
	if !ok {
		return models.Driver{}, fmt.Errorf("token not found")
	}
	return d, nil
}

func TestDriverAuthResolvesDriverFromToken(t *testing.T) {
	resolver := &fakeTokenResolver{drivers: map[string]models.Driver{
		"valid-token": {ID: 7, Email: "ivan@fleet.bg"},
	}}

	var gotDriver models.Driver
	var gotOK bool
	handler := DriverAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDriver, gotOK = GetDriverFromContext(r)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/driver/location", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, gotOK)
	assert.Equal(t, int64(7), gotDriver.ID)
	assert.Equal(t, "ivan@fleet.bg", gotDriver.Email)
}

func TestDriverAuthRejectsBadToken(t *testing.T) {
	resolver := &fakeTokenResolver{drivers: map[string]models.Driver{}}
	handler := DriverAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/driver/location", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDriverAuthRejectsMissingHeader(t *testing.T) {
	resolver := &fakeTokenResolver{drivers: map[string]models.Driver{}}
	handler := DriverAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/driver/location", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func signedToken(t *testing.T, secret, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-1",
		"email":   "admin@driverevents.local",
		"role":    role,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthAcceptsValidBearerToken(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	var claims UserClaims
	var ok bool
	handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok = GetUserFromContext(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "test-secret", "admin"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "admin@driverevents.local", claims.Email)
}

func TestAuthRejectsTokenSignedWithWrongSecret(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "other-secret", "admin"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleForbidsMismatchedRole(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	handler := Auth(RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "test-secret", "driver"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
