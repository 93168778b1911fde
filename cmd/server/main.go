package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/notifyfeed/internal/router"
	"github.com/anonto42/nano-midea/notifyfeed/pkg/config"
	"github.com/anonto42/nano-midea/notifyfeed/pkg/firebase"
	"github.com/anonto42/nano-midea/notifyfeed/validators"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := config.InitLogger(cfg)

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	if cfg.AutoMigrate {
		if err := router.Migrate(db.Postgres); err != nil {
			log.Fatalf("%v", err)
		}
		log.Info("PostgreSQL auto-migrations completed")
	}

	// Initialize Firebase only when credentials are configured
	var authClient *auth.Client
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		authClient = firebaseApp.AuthClient
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	// Setup global middleware
	config.SetupMiddleware(e, log)

	// Setup routes and dependencies
	dismissals, err := router.SetupRoutes(e, cfg, db.Postgres, authClient)
	if err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	dismissals.Wait()
	log.Info("server stopped")
}
