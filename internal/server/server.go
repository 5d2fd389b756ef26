// Package server exposes the risk dashboard and upload scoring over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hed1ad/theftguard/internal/config"
	"github.com/hed1ad/theftguard/internal/metrics"
	"github.com/hed1ad/theftguard/pkg/dashboard"
	"github.com/hed1ad/theftguard/pkg/scoring"
)

// Server wires the HTTP routes to an immutable consumer snapshot and a
// scorer. Neither is mutated after construction.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	snapshot *dashboard.Snapshot
	scorer   *scoring.Scorer
	router   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a server over the given snapshot and scorer.
func New(cfg *config.Config, snapshot *dashboard.Snapshot, scorer *scoring.Scorer, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   zap.NewNop(),
		snapshot: snapshot,
		scorer:   scorer,
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	s.metrics.ConsumersLoaded.Set(float64(snapshot.Len()))
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.Use(s.metrics.Middleware())
	r.Use(s.corsMiddleware())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api/v1")
	dash := newDashboardHandler(s.snapshot)
	dash.RegisterRoutes(api)
	pred := newPredictHandler(s.scorer, s.metrics, s.cfg.MaxUploadBytes())
	pred.RegisterRoutes(api)

	return r
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	origins := s.cfg.AllowedOrigins()
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "UP",
		"consumers":      s.snapshot.Len(),
		"schema_version": s.scorer.Schema().Version,
		"model_run_id":   s.scorer.RunID(),
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
