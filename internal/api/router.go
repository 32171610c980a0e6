package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/api/handlers"
	"github.com/mysqft/leadcapture/internal/api/middleware"
	"github.com/mysqft/leadcapture/internal/config"
	"github.com/mysqft/leadcapture/internal/metrics"
	"github.com/mysqft/leadcapture/internal/ratelimit"
)

// Deps are the collaborators the HTTP layer is wired to. Digest may be nil,
// in which case the digest trigger is not exposed.
type Deps struct {
	Submitter handlers.Submitter
	Directory handlers.TenantDirectory
	Digest    handlers.DigestRunner
	DB        handlers.Pinger
	Limiter   ratelimit.Limiter
	Metrics   *metrics.Collector
	Gatherer  prometheus.Gatherer
}

type Server struct {
	Config  *config.Config
	Router  *gin.Engine
	handler *handlers.Handler
	deps    Deps
	logger  *zap.Logger
	http    *http.Server
}

func NewServer(cfg *config.Config, deps Deps, logger *zap.Logger) (*Server, error) {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	router.TrustedPlatform = cfg.Server.TrustedPlatform
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, err
	}

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.TenantHost(cfg.Server.ForwardedHost))
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())

	server := &Server{
		Config:  cfg,
		Router:  router,
		handler: handlers.NewHandler(deps.Submitter, deps.Directory, deps.Digest, deps.DB, logger),
		deps:    deps,
		logger:  logger,
	}

	server.setupRoutes()

	server.http = &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	return server, nil
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", s.handler.Health)
	s.Router.GET("/ready", s.handler.Ready)

	if s.deps.Gatherer != nil {
		s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Public ingestion
	submit := s.Router.Group("/submit")
	submit.Use(middleware.CORS(s.Config.Tenancy.RootDomain))
	{
		submit.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		submit.POST("", middleware.RateLimit(s.deps.Limiter, s.deps.Metrics, s.logger), s.handler.Submit)
	}

	// Operator triggers
	if s.Config.Auth.JWTSecret == "" {
		s.logger.Info("JWT secret not set, admin endpoints disabled")
		return
	}
	admin := s.Router.Group("/admin")
	admin.Use(middleware.AuthRequired(s.Config.Auth.JWTSecret))
	{
		admin.POST("/directory/refresh", s.handler.RefreshDirectory)
		if s.deps.Digest != nil {
			admin.POST("/digest/run", s.handler.RunDigest)
		}
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("port", s.Config.Server.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
