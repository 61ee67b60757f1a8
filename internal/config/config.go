package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"SP_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"SP_DB_MAX_CONNS" default:"8"`

	ExtractionAPIKey  string        `envconfig:"EXTRACTION_API_KEY" default:""`
	ExtractionBaseURL string        `envconfig:"EXTRACTION_BASE_URL" default:""`
	ExtractionModel   string        `envconfig:"EXTRACTION_MODEL" default:"gpt-4o-mini"`
	ExtractionTimeout time.Duration `envconfig:"EXTRACTION_TIMEOUT" default:"45s"`

	SourcesFile       string        `envconfig:"SOURCES_FILE" default:"sources.json"`
	CrawlBatchSize    int           `envconfig:"CRAWL_BATCH_SIZE" default:"8"`
	CrawlFetchTimeout time.Duration `envconfig:"CRAWL_FETCH_TIMEOUT" default:"15s"`
	CrawlRatePerSec   float64       `envconfig:"CRAWL_RATE_PER_SEC" default:"1"`
	CrawlUserAgent    string        `envconfig:"CRAWL_USER_AGENT" default:"ShowpipeBot/1.0 (+https://cardscout.app)"`

	DefaultAdminUser     string `envconfig:"DEFAULT_ADMIN_USER" default:"admin"`
	DefaultAdminPassword string `envconfig:"DEFAULT_ADMIN_PASSWORD" default:""`
	SessionTTLHours      int    `envconfig:"SESSION_TTL_HOURS" default:"168"`
	SessionCookieName    string `envconfig:"SESSION_COOKIE_NAME" default:"showpipe_session"`
	SessionCookieSecure  bool   `envconfig:"SESSION_COOKIE_SECURE" default:"false"`
	CORSAllowedOrigins   string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("SP_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("SP_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("SP_DB_MIN_CONNS (%d) cannot exceed SP_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.CrawlBatchSize < 1 {
		return fmt.Errorf("CRAWL_BATCH_SIZE must be >= 1")
	}
	if c.CrawlFetchTimeout < time.Second {
		return fmt.Errorf("CRAWL_FETCH_TIMEOUT must be >= 1s")
	}
	if c.CrawlRatePerSec <= 0 {
		return fmt.Errorf("CRAWL_RATE_PER_SEC must be > 0")
	}
	if strings.TrimSpace(c.SourcesFile) == "" {
		return fmt.Errorf("SOURCES_FILE is required")
	}
	if strings.TrimSpace(c.DefaultAdminUser) == "" {
		return fmt.Errorf("DEFAULT_ADMIN_USER is required")
	}
	if c.SessionTTLHours < 1 {
		return fmt.Errorf("SESSION_TTL_HOURS must be >= 1")
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME is required")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
