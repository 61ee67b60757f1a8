package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cardscout.app/showpipe/internal/cli"
	"cardscout.app/showpipe/internal/config"
	"cardscout.app/showpipe/internal/crawl"
	"cardscout.app/showpipe/internal/db"
	"cardscout.app/showpipe/internal/extract"
	"cardscout.app/showpipe/internal/logging"
	"cardscout.app/showpipe/internal/registry"
)

func runCrawl(args []string) int {
	fs := flag.NewFlagSet("crawl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	limit := fs.Int("limit", 0, "Override the configured batch size (0 uses CRAWL_BATCH_SIZE)")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall batch timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
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
		logger.Error().Err(err).Msg("crawl failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	service, err := buildCrawlService(cfg, pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("crawl setup failed")
		fmt.Fprintf(os.Stderr, "Crawl setup failed: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	summary, err := service.Run(ctx, *limit)
	if err != nil {
		logger.Error().Err(err).Msg("crawl run failed")
		fmt.Fprintf(os.Stderr, "Crawl run failed: %v\n", err)
		return 1
	}

	encoded, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode summary: %v\n", err)
		return 1
	}
	fmt.Println(string(encoded))
	return 0
}

// buildCrawlService wires the registry, fetcher, and extractor into a
// batch service. Shared by the crawl command and the serve trigger.
func buildCrawlService(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) (*crawl.Service, error) {
	if strings.TrimSpace(cfg.ExtractionAPIKey) == "" {
		return nil, fmt.Errorf("EXTRACTION_API_KEY is required for crawling")
	}

	reg, err := registry.LoadFile(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}

	extractor, err := extract.NewOpenAIExtractor(extract.OpenAIConfig{
		APIKey:  cfg.ExtractionAPIKey,
		BaseURL: cfg.ExtractionBaseURL,
		Model:   cfg.ExtractionModel,
		Timeout: cfg.ExtractionTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	fetcher := crawl.NewPageFetcher(crawl.FetcherOptions{
		Timeout:    cfg.CrawlFetchTimeout,
		UserAgent:  cfg.CrawlUserAgent,
		RatePerSec: cfg.CrawlRatePerSec,
	})

	return crawl.NewService(reg, fetcher, extractor, pool, logger, cfg.CrawlBatchSize), nil
}
