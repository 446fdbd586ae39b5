// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echocipher/carrier/internal/config"
	conversionHTTP "github.com/echocipher/carrier/internal/conversion/http"
	"github.com/echocipher/carrier/internal/httputil"
	keyvaultHTTP "github.com/echocipher/carrier/internal/keyvault/http"
	"github.com/echocipher/carrier/internal/metrics"
)

// Server represents the HTTP API server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new HTTP server. Call SetupRouter before Start.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 15 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// SetTimeouts overrides the read and write timeouts. Uploads and conversions
// outlive the defaults.
func (s *Server) SetTimeouts(read, write time.Duration) {
	if read > 0 {
		s.server.ReadTimeout = read
	}
	if write > 0 {
		s.server.WriteTimeout = write
	}
}

// SetupRouter registers middleware and every API route.
func (s *Server) SetupRouter(
	cfg *config.Config,
	conversionHandler *conversionHTTP.ConversionHandler,
	keyHandler *keyvaultHTTP.KeyHandler,
	metricsProvider *metrics.Provider,
	metricsNamespace string,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), metricsNamespace))
	}

	router.MaxMultipartMemory = 32 << 20

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	v1.GET("/gateway/health", conversionHandler.GatewayHealthHandler)

	caller := v1.Group("")
	caller.Use(httputil.RequireUserID(s.logger))
	if cfg.RateLimitEnabled {
		caller.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	conversions := caller.Group("/conversions")
	{
		conversions.POST("/encode", conversionHandler.EncodeHandler)
		conversions.POST("", conversionHandler.CreateHandler)
		conversions.GET("", conversionHandler.ListHandler)
		conversions.GET("/stats", conversionHandler.StatsHandler)
		conversions.GET("/:id", conversionHandler.GetHandler)
		conversions.POST("/:id/decode", conversionHandler.DecodeHandler)
		conversions.GET("/:id/bundle", conversionHandler.BundleHandler)
		conversions.DELETE("/:id", conversionHandler.DeleteHandler)
	}

	keys := caller.Group("/keys")
	{
		keys.POST("/generate", keyHandler.GenerateHandler)
		keys.POST("/rotate", keyHandler.RotateHandler)
		keys.GET("", keyHandler.ListHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready once the database answers a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	database := "ok"
	if s.db == nil {
		database = "error"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.Any("error", err))
			database = "error"
		}
	}

	if database != "ok" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": database},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": database},
	})
}
