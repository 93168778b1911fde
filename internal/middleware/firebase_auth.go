package middleware

import (
	"context"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// TokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserLookup resolves a local user from a Firebase UID.
type UserLookup interface {
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
}

// FirebaseAuthMiddleware creates an Echo middleware to verify Firebase ID tokens
// and resolve them to a local user id.
func FirebaseAuthMiddleware(verifier TokenVerifier, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken, err := bearerToken(c)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			token, err := verifier.VerifyIDToken(ctx, idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
			}

			user, err := users.GetUserByFirebaseUID(ctx, token.UID)
			if err != nil {
				logrus.WithField("firebase_uid", token.UID).WithError(err).Debug("no local user for firebase token")
				return echo.NewHTTPError(http.StatusUnauthorized, "User not registered")
			}

			c.Set("firebaseUID", token.UID)
			c.Set(UserIDKey, user.ID)
			return next(c)
		}
	}
}
