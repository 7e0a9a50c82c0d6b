package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/healx/internal/auth"
	"github.com/smallbiznis/healx/internal/authorization"
	"github.com/smallbiznis/healx/internal/cache"
	"github.com/smallbiznis/healx/internal/catalog"
	catalogdomain "github.com/smallbiznis/healx/internal/catalog/domain"
	"github.com/smallbiznis/healx/internal/config"
	"github.com/smallbiznis/healx/internal/journal"
	journaldomain "github.com/smallbiznis/healx/internal/journal/domain"
	"github.com/smallbiznis/healx/internal/media"
	mediadomain "github.com/smallbiznis/healx/internal/media/domain"
	"github.com/smallbiznis/healx/internal/observability"
	obsmiddleware "github.com/smallbiznis/healx/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/healx/internal/observability/metrics"
	obstracing "github.com/smallbiznis/healx/internal/observability/tracing"
	"github.com/smallbiznis/healx/internal/observation"
	observationdomain "github.com/smallbiznis/healx/internal/observation/domain"
	"github.com/smallbiznis/healx/internal/providers"
	"github.com/smallbiznis/healx/internal/ratelimit"
	"github.com/smallbiznis/healx/internal/source"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	cache.Module,
	auth.Module,
	authorization.Module,
	catalog.Module,
	source.Module,
	observation.Module,
	journal.Module,
	providers.Module,
	media.Module,
	ratelimit.Module,
	fx.Provide(NewServer),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
		QuietRoutes:     []string{"/health", "/metrics"},
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "HealX Backend"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

// RunHTTP binds the routed engine to the configured port for the lifetime of the app.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	verifier       auth.Verifier
	authzSvc       authorization.Service
	catalog        catalogdomain.Resolver
	observationSvc observationdomain.Service
	journalSvc     journaldomain.Service
	mediaSvc       mediadomain.Service
	obsMetrics     *obsmetrics.Metrics
	batchLimiter   *ratelimit.BatchIngestLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Verifier       auth.Verifier
	AuthzSvc       authorization.Service
	Catalog        catalogdomain.Resolver
	ObservationSvc observationdomain.Service
	JournalSvc     journaldomain.Service
	MediaSvc       mediadomain.Service
	ObsMetrics     *obsmetrics.Metrics           `optional:"true"`
	BatchLimiter   *ratelimit.BatchIngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		verifier:       p.Verifier,
		authzSvc:       p.AuthzSvc,
		catalog:        p.Catalog,
		observationSvc: p.ObservationSvc,
		journalSvc:     p.JournalSvc,
		mediaSvc:       p.MediaSvc,
		obsMetrics:     p.ObsMetrics,
		batchLimiter:   p.BatchLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerUIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	observations := s.engine.Group("/observations", s.AuthRequired())
	observations.POST("/batch",
		s.authorize(authorization.ObjectObservation, authorization.ActionObservationIngest),
		s.BatchIngestRateLimit(),
		s.IngestBatch,
	)

	s.engine.POST("/journal",
		s.AuthRequired(),
		s.authorize(authorization.ObjectJournal, authorization.ActionJournalWrite),
		s.CreateJournalEntry,
	)

	uploads := s.engine.Group("/media", s.AuthRequired())
	uploads.POST("/upload-url",
		s.authorize(authorization.ObjectMedia, authorization.ActionMediaUpload),
		s.IssueUploadURL,
	)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired())

	admin.GET("/catalog",
		s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogInvalidate),
		s.CatalogStats,
	)
	admin.POST("/catalog/invalidate",
		s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogInvalidate),
		s.InvalidateCatalog,
	)
}

func (s *Server) registerUIRoutes() {
	s.engine.GET("/", s.serveIndex("index.html"))
	s.engine.GET("/index.tsx", s.serveIndex("index.tsx"))
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
