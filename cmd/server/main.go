package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnpath/internal/config"
	"learnpath/internal/database"
	"learnpath/internal/handlers"
	"learnpath/internal/repository"
	"learnpath/internal/security"
	"learnpath/internal/service"
)

const devJWTSecret = "learnpath-dev-secret-change-me"

func main() {
	ctx := context.Background()

	// Load configuration
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			log.Fatal("JWT_SECRET must be set in production")
		}
		log.Println("Warning: JWT_SECRET not set, using an insecure development secret")
		cfg.JWTSecret = devJWTSecret
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	contentRepo := repository.NewContentRepository(db)
	practiceRepo := repository.NewPracticeRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	if !emailService.IsEnabled() {
		log.Println("Email disabled: SES_FROM_EMAIL not set")
	}

	// Ledger writes for the same (user, item) pair are serialized through one lock table
	locks := security.NewKeyedMutex()

	// Initialize services
	authService := service.NewAuthService(db, userRepo, security.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry), emailService)
	contentService := service.NewContentService(db, contentRepo, practiceRepo)
	practiceService := service.NewPracticeService(db, practiceRepo, progressRepo, userRepo, locks)
	progressService := service.NewProgressService(db, contentRepo, progressRepo, userRepo, locks)

	if cfg.ContentSeedPath != "" {
		if err := seedContent(ctx, contentService, cfg.ContentSeedPath); err != nil {
			log.Printf("Warning: Failed to seed content from %s: %v", cfg.ContentSeedPath, err)
		}
	}

	limiter := security.NewRateLimiter(cfg.AuthRatePerMinute, time.Minute)
	middleware := handlers.NewMiddleware(authService, limiter, cfg.CORSAllowedOrigins)

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, &handlers.Handlers{
		DB:         db,
		Middleware: middleware,
		Auth:       handlers.NewAuthHandler(authService),
		Content:    handlers.NewContentHandler(contentService),
		Practice:   handlers.NewPracticeHandler(practiceService),
		Progress:   handlers.NewProgressHandler(progressService),
	})

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.Wrap(mux, middleware),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go runCleanup(cleanupCtx, authService, limiter)

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

// seedContent imports a catalog file into an empty database
func seedContent(ctx context.Context, contentService *service.ContentService, path string) error {
	routes, err := contentService.ListRoutes(ctx, true)
	if err != nil {
		return err
	}
	if len(routes) > 0 {
		return nil
	}

	cat, err := service.LoadCatalogFile(path)
	if err != nil {
		return err
	}
	_, err = contentService.ImportCatalog(ctx, cat)
	return err
}

// runCleanup periodically removes expired reset tokens and idle rate limiter entries
func runCleanup(ctx context.Context, authService *service.AuthService, limiter *security.RateLimiter) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := authService.CleanupExpiredPasswordResetTokens(ctx); err != nil {
			log.Printf("Error cleaning up expired reset tokens: %v", err)
		} else if n > 0 {
			log.Printf("Removed %d expired reset tokens", n)
		}

		if n := limiter.Cleanup(); n > 0 {
			log.Printf("Removed %d idle rate limiter entries", n)
		}
	}
}
