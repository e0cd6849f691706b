package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prasetya88/billing-pipeline/internal/config"
	"github.com/prasetya88/billing-pipeline/internal/handler"
	"github.com/prasetya88/billing-pipeline/internal/middleware"
	"github.com/prasetya88/billing-pipeline/pkg/logger"
)

// Server is the ops HTTP surface running alongside the polling loop:
// health, pipeline stats, and prometheus metrics.
type Server struct {
	echo          *echo.Echo
	cfg           *config.Config
	logger        *logger.Logger
	healthHandler *handler.HealthHandler
	statsHandler  *handler.StatsHandler
	registry      *prometheus.Registry
}

func New(
	cfg *config.Config,
	log *logger.Logger,
	healthHandler *handler.HealthHandler,
	statsHandler *handler.StatsHandler,
	registry *prometheus.Registry,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	return &Server{
		echo:          e,
		cfg:           cfg,
		logger:        log,
		healthHandler: healthHandler,
		statsHandler:  statsHandler,
		registry:      registry,
	}
}

func (s *Server) Start() error {
	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info(context.Background(), "Starting ops server",
		"address", addr,
	)

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down ops server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echoMiddleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.Logging(s.logger))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler.Check)
	s.echo.GET("/stats", s.statsHandler.Get)

	metricsHandler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

func (s *Server) Handler() http.Handler {
	s.setupMiddleware()
	s.setupRoutes()
	return s.echo
}
