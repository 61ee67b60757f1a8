package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"cardscout.app/showpipe/internal/auth"
	"cardscout.app/showpipe/internal/config"
	"cardscout.app/showpipe/internal/db"
	"cardscout.app/showpipe/internal/globaltime"
)

func ensureDefaultAdmin(ctx context.Context, pool *db.Pool, cfg *config.Config, logger zerolog.Logger) error {
	if pool == nil || cfg == nil {
		return fmt.Errorf("ensure default admin: missing dependencies")
	}

	userCount, err := pool.CountUsers(ctx)
	if err != nil {
		return err
	}
	if userCount > 0 {
		return nil
	}

	username := auth.NormalizeUsername(cfg.DefaultAdminUser)
	password := strings.TrimSpace(cfg.DefaultAdminPassword)
	if username == "" || password == "" {
		return fmt.Errorf("default admin credentials are empty; set DEFAULT_ADMIN_USER and DEFAULT_ADMIN_PASSWORD")
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash default admin password: %w", err)
	}

	if _, err := pool.CreateUser(ctx, username, passwordHash, true, globaltime.UTC()); err != nil {
		// Another instance may have seeded concurrently.
		if strings.Contains(strings.ToLower(err.Error()), "duplicate key value") {
			return nil
		}
		return err
	}

	logger.Warn().
		Str("username", username).
		Msg("created default admin user")

	return nil
}
