package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/anonto42/nano-midea/notifyfeed/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Dismisser is the dismissal ledger as seen by the HTTP layer
type Dismisser interface {
	ListDismissedIDs(ctx context.Context, userID string, limit int) ([]string, error)
	Dismiss(ctx context.Context, userID, notificationID string) (*services.DismissResult, error)
	DismissMany(ctx context.Context, userID string, notificationIDs []string) (int, error)
}

// StreamLoader builds a user's notification stream
type StreamLoader interface {
	LoadStream(ctx context.Context, userID string, opts services.StreamOptions) (*models.NotificationStreamResponse, error)
}

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	dismissals Dismisser
	stream     StreamLoader
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(dismissals Dismisser, stream StreamLoader) *NotificationHandler {
	return &NotificationHandler{
		dismissals: dismissals,
		stream:     stream,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/dismissed", h.GetDismissed)
	g.POST("/dismissed", h.Dismiss)
	g.POST("/dismissed/bulk", h.DismissBulk)
	g.GET("/stream", h.GetStream)
}

// queryInt parses an optional integer query parameter within [min, max].
func queryInt(c echo.Context, name string, fallback, min, max int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity,
			name+" must be an integer between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return n, nil
}

func (h *NotificationHandler) toHTTPError(c echo.Context, err error, msg string) error {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, validationErr.Error())
	}
	logrus.WithFields(logrus.Fields{
		"user_id": getUserIDFromContext(c),
		"path":    c.Path(),
	}).WithError(err).Error(msg)
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}

// GetDismissed returns the user's most recently dismissed notification ids
func (h *NotificationHandler) GetDismissed(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	limit, err := queryInt(c, "limit", services.DefaultDismissedListLimit, 1, services.MaxDismissedLimit)
	if err != nil {
		return err
	}

	ids, err := h.dismissals.ListDismissedIDs(c.Request().Context(), userID, limit)
	if err != nil {
		return h.toHTTPError(c, err, "Failed to load dismissed notifications")
	}
	return c.JSON(http.StatusOK, models.DismissedNotificationListResponse{NotificationIDs: ids})
}

// Dismiss dismisses a single notification
func (h *NotificationHandler) Dismiss(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.DismissNotificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result, err := h.dismissals.Dismiss(c.Request().Context(), userID, req.NotificationID)
	if err != nil {
		return h.toHTTPError(c, err, "Failed to dismiss notification")
	}
	return c.JSON(http.StatusOK, models.DismissNotificationResponse{
		NotificationID: result.NotificationID,
		DismissedAt:    result.DismissedAt,
	})
}

// DismissBulk dismisses up to 64 notifications at once
func (h *NotificationHandler) DismissBulk(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.DismissNotificationsBulkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	processed, err := h.dismissals.DismissMany(c.Request().Context(), userID, req.NotificationIDs)
	if err != nil {
		return h.toHTTPError(c, err, "Failed to dismiss notifications")
	}
	return c.JSON(http.StatusOK, models.DismissNotificationsBulkResponse{ProcessedCount: processed})
}

// GetStream returns the undismissed notifications and follow requests
func (h *NotificationHandler) GetStream(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	limit, err := queryInt(c, "limit", services.DefaultStreamLimit, 1, services.MaxStreamLimit)
	if err != nil {
		return err
	}
	followLimit, err := queryInt(c, "followLimit", services.DefaultFollowLimit, 1, services.MaxFollowLimit)
	if err != nil {
		return err
	}

	stream, err := h.stream.LoadStream(c.Request().Context(), userID, services.StreamOptions{
		Limit:       limit,
		FollowLimit: followLimit,
	})
	if err != nil {
		return h.toHTTPError(c, err, "Failed to load notification stream")
	}
	return c.JSON(http.StatusOK, stream)
}
