package handlers

import (
	"github.com/anonto42/nano-midea/notifyfeed/internal/middleware"
	"github.com/labstack/echo/v4"
)

// getUserIDFromContext returns the id stored by the auth middleware, or "".
func getUserIDFromContext(c echo.Context) string {
	userID, _ := c.Get(middleware.UserIDKey).(string)
	return userID
}
