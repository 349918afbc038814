package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject, email string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthMiddleware(t *testing.T) {
	var gotUserID, gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = r.Context().Value(UserContextKey).(string)
		gotEmail, _ = r.Context().Value(EmailContextKey).(string)
		w.WriteHeader(http.StatusOK)
	})
	mw := AuthMiddleware(testSecret, zerolog.Nop())(next)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, authedRequest(""))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		req.Header.Set("Authorization", "Token abc")
		mw.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, authedRequest(signToken(t, "other-secret", "u1", "u1@example.com")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no subject", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, authedRequest(signToken(t, testSecret, "", "u1@example.com")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token reaches handler with identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, authedRequest(signToken(t, testSecret, "u1", "u1@example.com")))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", gotUserID)
		assert.Equal(t, "u1@example.com", gotEmail)
	})
}
