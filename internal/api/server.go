// Package api serves the plant diaries REST API with gin.
//
// Every /api route except health, register, login and refresh requires an
// access token in "Authorization: Bearer <token>". Rows are always scoped to
// the token's user, so another user's plant answers 404.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mesh-intelligence/plantdiaries/internal/auth"
	"github.com/mesh-intelligence/plantdiaries/internal/importer"
	"github.com/mesh-intelligence/plantdiaries/internal/maintenance"
	"github.com/mesh-intelligence/plantdiaries/internal/metrics"
	"github.com/mesh-intelligence/plantdiaries/internal/photos"
	"github.com/mesh-intelligence/plantdiaries/internal/telemetry"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// jsonBodyLimit caps request bodies outside the upload routes.
const jsonBodyLimit = 1 << 20

// Deps are the collaborators of a Server.
type Deps struct {
	Diary    types.Diary
	Store    *photos.Store
	Issuer   *auth.Issuer
	Throttle *auth.Throttle
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Options tune the HTTP surface.
type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	Tracing        bool
}

// Server holds the gin engine and the services behind the handlers.
type Server struct {
	diary    types.Diary
	store    *photos.Store
	ingest   *photos.Ingestor
	issuer   *auth.Issuer
	throttle *auth.Throttle
	importer *importer.Importer
	jobs     *maintenance.Jobs
	metrics  *metrics.Metrics
	logger   *slog.Logger
	opts     Options
	engine   *gin.Engine
}

// New wires the routes. A nil Logger discards output; a nil Throttle
// disables login throttling; a nil Metrics records nothing and leaves
// /metrics unrouted.
func New(deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	registerValidators(logger)

	s := &Server{
		diary:    deps.Diary,
		store:    deps.Store,
		ingest:   photos.NewIngestor(deps.Store, opts.MaxUploadBytes),
		issuer:   deps.Issuer,
		throttle: deps.Throttle,
		importer: importer.New(deps.Diary, deps.Store, logger, deps.Metrics),
		jobs:     maintenance.New(deps.Diary, deps.Store, logger, deps.Metrics),
		metrics:  deps.Metrics,
		logger:   logger,
		opts:     opts,
	}
	s.engine = s.routes()
	return s
}

// Jobs exposes the maintenance jobs bound to the server's diary and store.
func (s *Server) Jobs() *maintenance.Jobs {
	return s.jobs
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.ingest.MaxBytes()
	r.Use(recovery(s.logger), requestLogger(s.logger), observe(s.metrics))
	if s.opts.Tracing {
		r.Use(otelgin.Middleware(telemetry.ServiceName))
	}
	r.Use(cors.New(corsConfig(s.opts.CORSOrigins)))

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	r.StaticFS(photos.PublicPrefix, http.FS(billyFS{s.store.Filesystem()}))

	api := r.Group("/api")
	api.GET("/health", s.health)

	jsonOnly := bodyLimit(jsonBodyLimit)
	uploads := bodyLimit(s.ingest.MaxBytes()*photos.MaxFilesPerUpload + jsonBodyLimit)
	authed := requireAuth(s.issuer)

	a := api.Group("/auth", jsonOnly)
	a.POST("/register", s.register)
	a.POST("/login", s.login)
	a.POST("/refresh", s.refresh)
	a.POST("/logout", authed, s.logout)
	a.GET("/me", authed, s.me)
	a.PUT("/password", authed, s.changePassword)

	plants := api.Group("/plants", authed, jsonOnly)
	plants.GET("", s.listPlants)
	plants.GET("/:id", s.getPlant)
	plants.POST("", s.createPlant)
	plants.PUT("/:id", s.updatePlant)
	plants.DELETE("/:id", s.deletePlant)

	events := api.Group("/events", authed, jsonOnly)
	events.GET("/plant/:plantId", s.listEvents)
	events.GET("/:id", s.getEvent)
	events.POST("", s.createEvent)
	events.PUT("/:id", s.updateEvent)
	events.DELETE("/:id", s.deleteEvent)

	ph := api.Group("/photos", authed, jsonOnly)
	ph.GET("/plant/:plantId", s.listPhotos)
	ph.POST("", s.createPhoto)
	ph.PUT("/:id", s.updatePhoto)
	ph.DELETE("/:id", s.deletePhoto)

	up := api.Group("/upload", authed, uploads)
	up.POST("/single", s.uploadSingle)
	up.POST("/multiple", s.uploadMultiple)

	tags := api.Group("/tags", authed, jsonOnly)
	tags.GET("", s.listTags)
	tags.POST("", s.createTag)
	tags.DELETE("/:id", s.deleteTag)

	et := api.Group("/event-types", authed, jsonOnly)
	et.GET("", s.listEventTypes)
	et.POST("", s.createEventType)
	et.DELETE("/:id", s.deleteEventType)

	api.POST("/csv/import", authed, uploads, s.importCSV)

	admin := api.Group("/admin", authed, requireAdmin(), jsonOnly)
	admin.POST("/cleanup-orphans", s.cleanupOrphans)

	r.NoRoute(func(c *gin.Context) {
		writeError(c, s.logger, errRouteNotFound)
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
