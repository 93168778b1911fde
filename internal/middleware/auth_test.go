package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret = "test-secret"
	userID = "0b7e6f7c-3c1d-4f6e-9a53-6c0f5e1d2a01"
)

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, subject string) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UserID: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

// serve runs mw in front of a handler that echoes the stored user id.
func serve(mw echo.MiddlewareFunc, authorization string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		id, _ := c.Get(UserIDKey).(string)
		return c.String(http.StatusOK, id)
	}, mw)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthMiddleware(t *testing.T) {
	mw := JWTAuthMiddleware(secret)

	rec := serve(mw, "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte(secret), userID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, rec.Body.String())

	rejected := map[string]string{
		"missing header":    "",
		"wrong scheme":      "Basic abc",
		"empty token":       "Bearer ",
		"garbage":           "Bearer not.a.jwt",
		"wrong secret":      "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), userID),
		"non uuid subject":  "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(secret), "alice"),
		"unsigned none alg": "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, userID),
	}
	for name, header := range rejected {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, serve(mw, header).Code)
		})
	}
}

type stubVerifier map[string]string

func (s stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	uid, ok := s[idToken]
	if !ok {
		return nil, errors.New("token expired")
	}
	return &auth.Token{UID: uid}, nil
}

type stubUsers map[string]string

func (s stubUsers) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	id, ok := s[uid]
	if !ok {
		return nil, errors.New("user not found")
	}
	return &models.User{ID: id}, nil
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	mw := FirebaseAuthMiddleware(
		stubVerifier{"good": "fb-1", "orphan": "fb-2"},
		stubUsers{"fb-1": userID},
	)

	rec := serve(mw, "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, rec.Body.String())

	for _, header := range []string{"", "Bearer bad", "Bearer orphan"} {
		assert.Equal(t, http.StatusUnauthorized, serve(mw, header).Code, header)
	}
}
