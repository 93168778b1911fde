package router

import (
	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/notifyfeed/internal/handlers"
	"github.com/anonto42/nano-midea/notifyfeed/internal/middleware"
	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/anonto42/nano-midea/notifyfeed/internal/repositories"
	"github.com/anonto42/nano-midea/notifyfeed/internal/services"
	"github.com/anonto42/nano-midea/notifyfeed/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate creates or updates the tables the service reads and writes.
func Migrate(pgdb *gorm.DB) error {
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.FollowRequest{},
		&models.UserBlock{},
		&models.DismissedNotification{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to auto migrate models")
	}
	return nil
}

// SetupRoutes configures all application routes and injects dependencies.
// Requests authenticate with Firebase when firebaseAuthClient is set and with
// JWT otherwise. The returned service lets the caller drain background work
// on shutdown.
func SetupRoutes(e *echo.Echo, cfg *config.Config, pgdb *gorm.DB, firebaseAuthClient *auth.Client) (*services.DismissalService, error) {
	sqlDB, err := pgdb.DB()
	if err != nil {
		return nil, errors.Wrap(err, "unable to access database handle")
	}

	// Health check - always accessible
	healthHandler := handlers.NewHealthHandler(sqlDB)
	e.GET("/health", healthHandler.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	dismissalRepo := repositories.NewPostgresDismissalRepository(pgdb)
	commentRepo := repositories.NewPostgresCommentRepository(pgdb, repositories.NotBlockedEitherWay)
	likeRepo := repositories.NewPostgresLikeRepository(pgdb, repositories.NotBlockedEitherWay)
	followRequestRepo := repositories.NewPostgresFollowRequestRepository(pgdb, repositories.NotBlockedEitherWay)

	// --- Initialize Services ---
	dismissalService := services.NewDismissalService(dismissalRepo,
		services.WithBackgroundPrune(true, services.PruneOptions{
			KeepLimit: cfg.Prune.KeepLimit,
			BatchSize: cfg.Prune.BatchSize,
		}),
	)
	streamService := services.NewStreamService(dismissalService, commentRepo, likeRepo, followRequestRepo)

	// --- Protected routes ---
	api := e.Group("/api/v1")
	if firebaseAuthClient != nil {
		api.Use(middleware.FirebaseAuthMiddleware(firebaseAuthClient, userRepo))
		logrus.Info("firebase authentication middleware applied to /api/v1 group")
	} else {
		if cfg.JWTSecret == "" {
			return nil, errors.New("JWT_SECRET must be set when firebase is not configured")
		}
		api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
		logrus.Info("JWT authentication middleware applied to /api/v1 group")
	}

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(dismissalService, streamService)
	notificationHandler.RegisterNotificationRoutes(api.Group("/notifications"))
	logrus.Info("notification routes configured")

	return dismissalService, nil
}
