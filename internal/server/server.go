// Package server contains the HTTP handlers for the gate-pass API.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"gatepass/internal/cache"
	"gatepass/internal/config"
	"gatepass/internal/database"
	"gatepass/internal/middleware"
	"gatepass/internal/models"
	"gatepass/internal/notifications"
	"gatepass/internal/repository"
	"gatepass/internal/service"
	"gatepass/internal/sms"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server wires configuration, storage and services behind a Fiber app.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	notifier       *notifications.Notifier

	resolutionService *service.ResolutionService
	alertService      *service.AlertService
	requestService    *service.RequestService
	userService       *service.UserService
	statsService      *service.StatsService
}

// NewServer connects to PostgreSQL and Redis, creates the schema and builds the server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("schema setup failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient(), newSender(cfg))
}

func newSender(cfg *config.Config) sms.Sender {
	if cfg.SMSEnabled() {
		return sms.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, cfg.SMSTimeout())
	}
	middleware.Logger.Warn("Twilio credentials not configured; alert SMS will only be logged")
	return sms.LogSender{}
}

// NewServerWithDeps builds a server around existing connections. redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, sender sms.Sender) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("gatepass-api"),
	}
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}

	server.resolutionService = service.NewResolutionService(db, userRepo, requestRepo, server.notifier)
	server.alertService = service.NewAlertService(db, userRepo, sender, server.notifier, service.AlertPolicy{
		StudentRole:    cfg.AlertStudentRole,
		VisitorRole:    cfg.AlertVisitorRole,
		Message:        cfg.AlertMessage,
		MaxConcurrency: cfg.AlertMaxConcurrency,
	})
	server.requestService = service.NewRequestService(db, userRepo, requestRepo)
	server.userService = service.NewUserService(db, userRepo, requestRepo, cfg.AlertStudentRole)
	server.statsService = service.NewStatsService(statsRepo)

	return server, nil
}

// SetupMiddleware registers the global middleware chain.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		MaxAge:       86400,
	}))
}

// SetupRoutes registers every API route under the configured base path.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group(s.config.APIBasePath)

	requests := api.Group("/requests")
	requests.Get("/pending", s.GetPendingGateRequests)
	requests.Post("/", s.SubmitRequest)
	requests.Patch("/:username/:action", s.ResolveRequest)
	requests.Get("/:username", s.GetPendingRequestsForUser)

	users := api.Group("/users")
	users.Post("/", s.CreateUser)
	users.Get("/", s.GetUsers)
	users.Get("/:username", s.GetUser)
	users.Delete("/:username", s.DeleteUser)
	api.Get("/usersearch", s.SearchUsers)

	api.Post("/alert", s.RunAlert)

	warden := api.Group("/warden/requests")
	warden.Get("/pending", s.GetPendingOutOfHostelRequests)
	warden.Patch("/:id/:action", s.ResolveOutOfHostelRequest)

	api.Get("/userstats", s.GetUserStats)
	api.Get("/requeststats", s.GetRequestStats)

	students := api.Group("/students")
	students.Get("/offenders", s.GetOffenders)
	students.Patch("/:username/clear-offences", s.ClearOffences)
}

// newApp builds the Fiber app with middleware and routes.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Gatepass API",
		UnescapePath: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and Redis are reachable.
// Redis is optional, so its absence does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server and blocks until the listener stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.newApp()

	if err := s.notifier.StartSubscriber(s.shutdownCtx, s.logEvent); err != nil {
		log.Printf("failed to subscribe to %s: %v", notifications.EventsChannel, err)
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

func (s *Server) logEvent(ev notifications.Event) {
	middleware.Logger.Info("domain event", slog.String("type", ev.Type), slog.Any("payload", ev.Payload))
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := database.Close(s.db); err != nil {
		log.Printf("error closing sql DB: %v", err)
	}

	if s.redis != nil {
		if s.redis == cache.GetClient() {
			cache.SetClient(nil)
		}
		if err := s.redis.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
