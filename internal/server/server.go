// Package server contains the HTTP and WebSocket handlers of the moderation API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"commentguard/internal/cache"
	"commentguard/internal/config"
	"commentguard/internal/database"
	"commentguard/internal/featureflags"
	"commentguard/internal/middleware"
	"commentguard/internal/models"
	"commentguard/internal/moderation"
	"commentguard/internal/notifications"
	"commentguard/internal/platform"
	"commentguard/internal/service"
	"commentguard/internal/store"
	"commentguard/internal/workflow"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// the notifier and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	persistence *service.Persistence
	comments    *store.CommentStore
	settings    *moderation.SettingsStore
	engine      *workflow.Engine
	notifier    *notifications.Notifier
	hub         *notifications.Hub
	hubs        []wireableHub

	featureFlags     *featureflags.Manager
	commentService   *service.CommentService
	settingsService  *service.SettingsService
	workflowService  *service.WorkflowService
	analyticsService *service.AnalyticsService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// db and redisClient may be nil, in which case state lives in memory and
// events are delivered in-process.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	settings, err := moderation.NewSettingsStore(models.DefaultSettings())
	if err != nil {
		return nil, fmt.Errorf("default settings: %w", err)
	}

	sink, err := actionSink(cfg)
	if err != nil {
		return nil, err
	}

	// A nil *redis.Client must not become a non-nil interface.
	var rdb redis.UniversalClient
	if redisClient != nil {
		rdb = redisClient
	}

	persistence := service.NewPersistence(db)
	notifier := notifications.NewNotifier(rdb)
	flags := featureflags.NewManager(cfg.FeatureFlags)
	comments := store.New(store.WithListener(persistence.CommentListener()))
	engine := workflow.NewEngine(comments,
		workflow.WithSink(sink),
		workflow.WithNotifier(notifier),
		workflow.WithObserver(service.NewWorkflowObserver(persistence, notifier)),
		workflow.WithLogger(middleware.Logger),
	)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("commentguard-api"),
		persistence:    persistence,
		comments:       comments,
		settings:       settings,
		engine:         engine,
		notifier:       notifier,
		hub:            notifications.NewHub(),
		featureFlags:   flags,
	}
	s.hubs = []wireableHub{s.hub}

	s.commentService = service.NewCommentService(comments, settings, engine,
		service.WithFlaggedPublisher(notifier),
		service.WithFeatureFlags(flags),
		service.WithClassifyWorkers(cfg.ClassifyWorkers),
		service.WithActionSink(sink),
	)
	s.settingsService = service.NewSettingsService(settings, persistence, notifier)
	s.workflowService = service.NewWorkflowService(engine)
	s.analyticsService = service.NewAnalyticsService(comments,
		cache.NewAnalyticsCache(rdb, cfg.AnalyticsCacheTTL()))

	return s, nil
}

func actionSink(cfg *config.Config) (workflow.ActionSink, error) {
	if cfg.ActionWebhookURL == "" {
		return workflow.LocalSink{}, nil
	}
	var opts []platform.Option
	if cfg.ActionWebhookToken != "" {
		opts = append(opts, platform.WithBearerToken(cfg.ActionWebhookToken))
	}
	sink, err := platform.NewWebhookSink(cfg.ActionWebhookURL, cfg.WebhookTimeout(), opts...)
	if err != nil {
		return nil, fmt.Errorf("action webhook: %w", err)
	}
	return sink, nil
}

// Bootstrap restores persisted state and seeds the rules file when no rules
// exist yet. It runs once before Start.
func (s *Server) Bootstrap(ctx context.Context) error {
	if err := s.persistence.Restore(ctx, s.comments, s.engine, s.settings); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	n, err := s.workflowService.SeedFromFile(ctx, s.config.RulesFile)
	if err != nil {
		return fmt.Errorf("seed rules: %w", err)
	}
	if n > 0 {
		middleware.Logger.InfoContext(ctx, "seeded workflow rules",
			slog.Int("rules", n), slog.String("file", s.config.RulesFile))
	}
	return nil
}

// Comments exposes the ingestion pipeline to in-process callers such as the
// seeder.
func (s *Server) Comments() *service.CommentService {
	return s.commentService
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	auth := middleware.AuthRequired(s.config.JWTSecret)

	// Read-only views
	api.Get("/comments", s.ListComments)
	api.Get("/comments/:id/explain", s.ExplainComment)
	api.Get("/comments/:id", s.GetComment)
	api.Get("/settings", s.GetSettings)
	api.Get("/rules", s.ListRules)
	api.Get("/rules/:id", s.GetRule)
	api.Get("/executions", s.ListExecutions)
	api.Get("/analytics", s.GetAnalytics)
	api.Get("/analytics/export", s.ExportComments)
	api.Get("/feature-flags", s.GetFeatureFlags)

	// Mutations require an operator token
	comments := api.Group("/comments", auth)
	comments.Post("/", s.IngestComments)
	comments.Post("/remoderate", s.RemoderateAll)
	// Specific /:id/:action routes before the generic /:id route
	comments.Post("/:id/hide", s.HideComment)
	comments.Post("/:id/unhide", s.UnhideComment)
	comments.Post("/:id/remoderate", s.RemoderateComment)
	comments.Delete("/:id", s.DeleteComment)

	api.Put("/settings", auth, s.ReplaceSettings)

	rules := api.Group("/rules", auth)
	rules.Post("/", s.CreateRule)
	rules.Post("/:id/activate", s.ActivateRule)
	rules.Post("/:id/deactivate", s.DeactivateRule)
	rules.Put("/:id", s.UpdateRule)
	rules.Delete("/:id", s.DeleteRule)

	api.Post("/workflows/run", auth, s.RunWorkflows)

	ws := api.Group("/ws", auth)
	ws.Get("/events", s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Backends that are not
// configured are reported as disabled and do not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "disabled"
	if s.db != nil {
		dbStatus = "healthy"
		sqlDB, err := s.db.DB()
		if err != nil {
			dbStatus = "unhealthy"
		} else if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
		}
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"comments":         s.comments.Len(),
		"rules":            len(s.engine.ListRules()),
		"feed_connections": s.hub.Count(),
		"settings_version": s.settingsService.Version(),
		"time":             time.Now(),
	})
}

// App builds the Fiber app with middleware and routes but does not listen.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "commentguard",
		BodyLimit: 8 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, err)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start listens on the configured port and serves until the app is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", ":"+s.config.Port)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", s.config.Port, err)
	}
	return s.Serve(ln)
}

// Serve wires the hubs and serves the app on ln until it is shut down.
func (s *Server) Serve(ln net.Listener) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	for _, h := range s.hubs {
		if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start hub wiring",
				slog.String("hub", h.Name()), slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server starting", slog.String("addr", ln.Addr().String()))
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub",
				slog.String("hub", h.Name()), slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
