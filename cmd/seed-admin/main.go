// Command seed-admin creates the admin account, or resets its password and role when it exists.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/internal/repository"
	"github.com/noah-isme/gradsmart-api/pkg/config"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	"github.com/noah-isme/gradsmart-api/pkg/logger"
)

func main() {
	email := flag.String("email", envOr("ADMIN_EMAIL", "admin@gradsmart.local"), "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	name := flag.String("name", envOr("ADMIN_NAME", "Administrator"), "display name")
	flag.Parse()

	if strings.TrimSpace(*password) == "" {
		log.Fatal("admin password is required (-password or ADMIN_PASSWORD)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Migrations.AutoRun {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		logr.Fatal("failed to hash password", zap.Error(err))
	}

	repo := repository.NewUserRepository(db)
	normalized := strings.ToLower(strings.TrimSpace(*email))
	existing, err := repo.FindByEmail(ctx, normalized)
	switch {
	case err == nil:
		if err := repo.UpdateCredentials(ctx, existing.ID, string(hash), models.RoleAdmin); err != nil {
			logr.Fatal("failed to update admin", zap.Error(err))
		}
		logr.Info("admin credentials updated", zap.String("email", normalized), zap.String("id", existing.ID))
	case errors.Is(err, sql.ErrNoRows):
		user := &models.User{Name: name, Email: normalized, PasswordHash: string(hash), Role: models.RoleAdmin}
		if err := repo.Create(ctx, user); err != nil {
			logr.Fatal("failed to create admin", zap.Error(err))
		}
		logr.Info("admin created", zap.String("email", normalized), zap.String("id", user.ID))
	default:
		logr.Fatal("failed to look up admin", zap.Error(err))
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
