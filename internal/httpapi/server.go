package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"cardscout.app/showpipe/internal/crawl"
	"cardscout.app/showpipe/internal/db"
	"cardscout.app/showpipe/internal/globaltime"
	"cardscout.app/showpipe/internal/moderation"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SessionCookie   string
	SessionSecure   bool
	SessionTTL      time.Duration
	AllowedOrigins  []string
}

type crawlRunner interface {
	Run(ctx context.Context, limit int) (crawl.Summary, error)
}

type Server struct {
	pool      *db.Pool
	moderator *moderation.Service
	crawler   crawlRunner
	logger    zerolog.Logger
	opts      Options

	// authStore overrides pool-backed auth lookups in tests.
	authStore authStore
}

func NewServer(pool *db.Pool, moderator *moderation.Service, crawler crawlRunner, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8095
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 60 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	sessionCookie := strings.TrimSpace(opts.SessionCookie)
	if sessionCookie == "" {
		sessionCookie = "showpipe_session"
	}
	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	allowedOrigins := opts.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return &Server{
		pool:      pool,
		moderator: moderator,
		crawler:   crawler,
		logger:    logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			SessionCookie:   sessionCookie,
			SessionSecure:   opts.SessionSecure,
			SessionTTL:      sessionTTL,
			AllowedOrigins:  allowedOrigins,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("showpipe api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("showpipe api server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.opts.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/shows", s.handleShows)
	api.GET("/shows/:id", s.handleShowDetail)

	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/logout", s.handleLogout)

	authed := api.Group("", s.requireAuth())
	authed.GET("/auth/me", s.handleMe)
	authed.GET("/runs", s.handleRuns)

	admin := authed.Group("", s.requireAdmin())
	admin.GET("/pending", s.handlePendingList)
	admin.GET("/pending/:id", s.handlePendingDetail)
	admin.POST("/pending/:id/approve", s.handleApprove)
	admin.POST("/pending/:id/reject", s.handleReject)
	admin.PATCH("/pending/:id", s.handleEdit)
	admin.POST("/crawl/run", s.handleCrawlRun)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "showpipe",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.pool.GetPipelineStats(c.Request().Context(), globaltime.UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleShows(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	offset, err := parsePositiveInt(c.QueryParam("offset"), 0, 0, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"offset": err.Error()})
	}

	from := globaltime.Today()
	if raw := strings.TrimSpace(c.QueryParam("from")); raw != "" {
		day, parseErr := time.Parse("2006-01-02", raw)
		if parseErr != nil {
			return failValidation(c, map[string]string{"from": "must be YYYY-MM-DD"})
		}
		from = day.UTC()
	}

	items, err := s.pool.ListUpcomingShows(c.Request().Context(), from, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("query shows failed")
		return internalError(c, "Failed to load shows")
	}

	return success(c, map[string]any{
		"items":  items,
		"from":   from.Format("2006-01-02"),
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleShowDetail(c echo.Context) error {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return failValidation(c, map[string]string{"id": "must be a positive integer"})
	}

	show, err := s.pool.GetShow(c.Request().Context(), id)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Show not found")
		}
		s.logger.Error().Err(err).Int64("show_id", id).Msg("query show failed")
		return internalError(c, "Failed to load show")
	}

	return success(c, show)
}

func (s *Server) handleRuns(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), 20, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	items, err := s.pool.ListRecentCrawlRuns(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query crawl runs failed")
		return internalError(c, "Failed to load crawl runs")
	}

	return success(c, map[string]any{"items": items})
}

func (s *Server) handleCrawlRun(c echo.Context) error {
	if s.crawler == nil {
		return internalError(c, "Crawler is not configured")
	}

	limit := 0
	if c.Request().ContentLength > 0 {
		var req struct {
			Limit int `json:"limit"`
		}
		if err := decodeJSONBody(c, &req); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
		if req.Limit < 0 || req.Limit > 1000 {
			return failValidation(c, map[string]string{"limit": "must be between 0 and 1000"})
		}
		limit = req.Limit
	}

	summary, err := s.crawler.Run(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("crawl run failed")
		return internalError(c, "Crawl run failed")
	}

	return success(c, summary)
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
