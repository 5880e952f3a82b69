package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kasir-api/internal/app"
	"github.com/noah-isme/kasir-api/internal/auth"
	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/config"
	"github.com/noah-isme/kasir-api/internal/obs"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "apply migrations and exit")
	skipCatalog := flag.Bool("skip-catalog", false, "do not seed the demo catalog")
	flag.Parse()

	logger := obs.NewLogger(obs.LogConfig{
		Format:  envOrDefault("OBS_LOG_FORMAT", "console"),
		Level:   envOrDefault("OBS_LOG_LEVEL", "info"),
		Service: "kasir-seeder",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if !cfg.UsesPostgres() {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}
	// The seeder never talks to Redis or the task queue.
	cfg.RedisURL = ""
	cfg.ReceiptsEnabled = false

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deps, err := app.NewDependencies(ctx, cfg, app.Options{ApplicationName: "kasir-seeder", Migrate: true, Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect")
	}
	defer func() { _ = deps.Close() }()
	logger.Info().Msg("migrations applied")

	if *migrateOnly {
		return
	}

	stores := deps.Stores()
	if !*skipCatalog {
		products := catalog.SeedProducts(time.Now())
		if err := catalog.Seed(ctx, stores.Catalog, products); err != nil {
			logger.Fatal().Err(err).Msg("seed catalog")
		}
		logger.Info().Int("products", len(products)).Msg("catalog seeded")
	}

	if err := seedAdmin(ctx, cfg, stores.Admins, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed admin")
	}
	logger.Info().Msg("seeding completed")
}

// seedAdmin creates the admin named by ADMIN_EMAIL/ADMIN_PASSWORD when both
// are set. An existing admin is left untouched.
func seedAdmin(ctx context.Context, cfg *config.Config, store auth.Store, logger zerolog.Logger) error {
	email := envOrDefault("ADMIN_EMAIL", "")
	password := envOrDefault("ADMIN_PASSWORD", "")
	if email == "" || password == "" {
		return nil
	}
	svc, err := auth.NewService(auth.Config{Store: store, Secret: cfg.JWTSecret})
	if err != nil {
		return err
	}
	admin, err := svc.Signup(ctx, auth.SignupInput{
		Name:     envOrDefault("ADMIN_NAME", "Store Admin"),
		Email:    email,
		Password: password,
	})
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.Code == common.CodeEmailAlreadyUsed {
		logger.Info().Str("email", email).Msg("admin already exists")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info().Str("admin_id", admin.ID).Str("email", admin.Email).Msg("admin created")
	return nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
