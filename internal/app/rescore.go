package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"cardscout.app/showpipe/internal/cli"
	"cardscout.app/showpipe/internal/config"
	"cardscout.app/showpipe/internal/db"
	"cardscout.app/showpipe/internal/logging"
	"cardscout.app/showpipe/internal/moderation"
)

func runRescore(args []string) int {
	fs := flag.NewFlagSet("rescore", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	limit := fs.Int("limit", 200, "Maximum rows to rescore in one pass")
	missingOnly := fs.Bool("missing-only", false, "Only score rows without a confidence score")
	timeout := fs.Duration("timeout", 2*time.Minute, "Overall rescore timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit < 1 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 1")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("rescore failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	moderator := moderation.NewService(pool, logger)
	scored, err := moderator.Rescore(ctx, *limit, *missingOnly)
	if err != nil {
		logger.Error().Err(err).Msg("rescore failed")
		fmt.Fprintf(os.Stderr, "Rescore failed: %v\n", err)
		return 1
	}

	logger.Info().Int("scored", scored).Bool("missing_only", *missingOnly).Msg("rescore finished")
	fmt.Printf("rescored %d pending shows\n", scored)
	return 0
}
