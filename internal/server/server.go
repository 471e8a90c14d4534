package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/shopforge/invoicepress/internal/config"
	invoicedomain "github.com/shopforge/invoicepress/internal/invoice/domain"
	"github.com/shopforge/invoicepress/internal/metrics"
	printjobdomain "github.com/shopforge/invoicepress/internal/printjob/domain"
	"github.com/shopforge/invoicepress/internal/ratelimit"
	"github.com/shopforge/invoicepress/internal/storage"
)

// Server owns the HTTP surface. Handlers delegate to the domain
// services and report errors through the shared envelope.
type Server struct {
	cfg      config.Config
	log      *zap.Logger
	invoices invoicedomain.Repository
	jobs     printjobdomain.Service
	storage  storage.Gateway
	limiter  *ratelimit.Limiter
}

type Params struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	Engine   *gin.Engine
	Invoices invoicedomain.Repository
	Jobs     printjobdomain.Service
	Storage  storage.Gateway
	Limiter  *ratelimit.Limiter
}

func NewServer(p Params) *Server {
	s := &Server{
		cfg:      p.Cfg,
		log:      p.Log.Named("server"),
		invoices: p.Invoices,
		jobs:     p.Jobs,
		storage:  p.Storage,
		limiter:  p.Limiter,
	}
	s.registerRoutes(p.Engine)
	return s
}

func NewEngine(cfg config.Config, log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(log))
	r.Use(MetricsMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	return r
}

func (s *Server) registerRoutes(r *gin.Engine) {
	api := r.Group("/api", ShopRequired())

	api.POST("/invoices/:orderID/generate", RateLimit(s.limiter, "single", singleRateLimit), s.GenerateInvoice)
	api.GET("/invoices/:orderID", s.GetInvoice)
	api.POST("/invoices/bulk", RateLimit(s.limiter, "bulk", bulkRateLimit), s.CreateBulkJob)

	api.GET("/jobs/:jobID", s.GetJob)
	api.POST("/jobs/:jobID/cancel", s.CancelJob)

	// The catch-all also serves the listing when no key is given; a
	// sibling static route would conflict in gin's route tree.
	api.GET("/artifacts/*key", s.GetArtifact)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)
