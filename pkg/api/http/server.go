package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aescanero/notifeed/internal/application/health"
	"github.com/aescanero/notifeed/internal/application/history"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Page is the rendered notification page
type Page interface {
	WriteTo(w io.Writer) (int64, error)
}

// HistoryReader reads the notification history
type HistoryReader interface {
	Load(ctx context.Context) (history.LoadResult, error)
}

// Clearer empties the history and re-renders the page
type Clearer interface {
	Clear(ctx context.Context) ([]string, error)
}

// HealthReporter reports service health
type HealthReporter interface {
	Status() health.Status
}

// Server represents the HTTP server
type Server struct {
	router  *gin.Engine
	server  *http.Server
	page    Page
	history HistoryReader
	clearer Clearer
	health  HealthReporter
	logger  *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port    int
	Page    Page
	History HistoryReader
	Clearer Clearer
	Health  HealthReporter

	// MetricsHandler serves /metrics; defaults to promhttp.Handler()
	MetricsHandler http.Handler
	Logger         *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))

	s := &Server{
		router:  router,
		page:    cfg.Page,
		history: cfg.History,
		clearer: cfg.Clearer,
		health:  cfg.Health,
		logger:  cfg.Logger,
	}

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	s.setupRoutes(metricsHandler)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// setupRoutes configures routes
func (s *Server) setupRoutes(metricsHandler http.Handler) {
	s.router.GET("/", s.handlePage)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(metricsHandler))

	v1 := s.router.Group("/api/v1")
	v1.Use(corsMiddleware())
	{
		v1.GET("/notifications", s.handleListNotifications)
		v1.DELETE("/notifications", s.handleClearNotifications)
		v1.OPTIONS("/notifications", func(c *gin.Context) {})
	}
}

// SetupWebSocket adds the live update handler to the server
func (s *Server) SetupWebSocket(handler gin.HandlerFunc) {
	s.router.GET("/ws", handler)
}

// Handler returns the HTTP handler, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}

// requestLogger is a middleware for request logging
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()))
	}
}
