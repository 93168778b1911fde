package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			logrus.WithError(err).Warn("health check: database unreachable")
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": "notifyfeed",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "notifyfeed",
	})
}
