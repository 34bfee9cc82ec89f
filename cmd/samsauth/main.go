// SAMS Auth Service
//
// This is the main entry point for the SAMS authentication service. It
// verifies user credentials, issues and validates access tokens, and
// serves the admin user management, staff directory, and audit log APIs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/samsdev/sams-auth/migrations"

	"github.com/samsdev/sams-auth/internal/api"
	"github.com/samsdev/sams-auth/internal/audit"
	"github.com/samsdev/sams-auth/internal/auth"
	"github.com/samsdev/sams-auth/internal/infrastructure/config"
	"github.com/samsdev/sams-auth/internal/infrastructure/database"
	"github.com/samsdev/sams-auth/internal/infrastructure/logging"
	"github.com/samsdev/sams-auth/internal/staff"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting SAMS auth service",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Wire repositories
	userRepo := auth.NewUserRepository(db.DB)
	staffRepo := staff.NewRepository(db.DB)
	auditRepo := audit.NewRepository(db.DB)

	// Seed the first admin account on an empty database. The generated
	// password is logged once and must be changed after first login.
	if _, seedErr := auth.SeedAdmin(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Start API server
	server, err := api.New(api.Deps{
		Config:    cfg.Server,
		Security:  cfg.Security,
		Logger:    log,
		UserRepo:  userRepo,
		StaffRepo: staffRepo,
		AuditRepo: auditRepo,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.Server.Host, "port", cfg.Server.Port)

	// Verify infrastructure is healthy
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: database: %w", err)
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: api: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API server, database.

	log.Info("SAMS auth service stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SAMSAUTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SAMSAUTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
