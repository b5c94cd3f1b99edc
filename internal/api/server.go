package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"eventpulse/internal/adapters/config"
	"eventpulse/internal/api/health"
	"eventpulse/internal/domain/candle"
	"eventpulse/internal/domain/event"
	"eventpulse/internal/domain/reaction"
	"eventpulse/internal/domain/stats"
	"eventpulse/internal/metrics"
	"eventpulse/internal/services/ingestion"
	"eventpulse/internal/workers"
	"eventpulse/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Server wraps the HTTP API with lifecycle management
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
	port       int
}

// Deps holds everything the handlers need
type Deps struct {
	Events    event.Repository
	Windows   candle.WindowRepository
	Reactions reaction.Repository
	Stats     stats.Repository
	Ingest    *ingestion.Service
	Scheduler *workers.Scheduler
	Redis     *redis.Client
	Health    *health.Handler
}

// NewServer builds the gin router and wraps it in an http.Server
func NewServer(cfg *config.Config, log *logger.Logger, deps Deps) *Server {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestMetrics())

	h := &handlers{
		events:    deps.Events,
		windows:   deps.Windows,
		reactions: deps.Reactions,
		stats:     deps.Stats,
		ingest:    deps.Ingest,
		scheduler: deps.Scheduler,
		cache:     NewRedisCache(deps.Redis),
		log:       log,
	}

	registerRoutes(engine, h, deps.Health, cfg.API.IngestSecret, cfg.App.Name, cfg.App.Version)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.API.Port),
			Handler:      engine,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log:  log,
		port: cfg.API.Port,
	}
}

func registerRoutes(engine *gin.Engine, h *handlers, hh *health.Handler, ingestSecret, serviceName, version string) {
	engine.GET("/health", gin.WrapF(hh.HandleHealth))
	engine.GET("/ready", gin.WrapF(hh.HandleReadiness))
	engine.GET("/live", gin.WrapF(hh.HandleLiveness))
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": serviceName,
			"version": version,
			"status":  "running",
		})
	})

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/events", h.listEvents)
		v1.GET("/events/high-impact", h.listHighImpactEvents)
		v1.GET("/events/proximity", h.eventProximity)
		v1.GET("/events/:id", h.getEvent)
		v1.GET("/events/:id/reactions", h.listEventReactions)

		v1.GET("/stats/:pair", h.listPairStats)
		v1.GET("/stats/:pair/:eventType", h.getStats)

		secured := v1.Group("", requireIngestSecret(ingestSecret))
		{
			secured.POST("/events", h.ingestOne)
			secured.POST("/events/bulk", h.ingestBulk)
			secured.POST("/windows", h.uploadWindow)
			secured.POST("/reactions", h.uploadReaction)
			secured.POST("/reactions/bulk", h.uploadReactionsBulk)
			secured.POST("/admin/events/:id/reset-flags", h.resetEventFlags)
			secured.GET("/admin/workers", h.listWorkers)
			secured.POST("/admin/workers/:name/enable", h.setWorkerEnabled(true))
			secured.POST("/admin/workers/:name/disable", h.setWorkerEnabled(false))
		}
	}
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Infow("Starting API server", "port", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
