// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"irtzalink/internal/blob"
	"irtzalink/internal/cache"
	"irtzalink/internal/config"
	"irtzalink/internal/database"
	"irtzalink/internal/featureflags"
	"irtzalink/internal/followcache"
	"irtzalink/internal/middleware"
	"irtzalink/internal/notifications"
	"irtzalink/internal/repository"
	"irtzalink/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Prometheus collectors register globally, so the HTTP metrics
// middleware is built once no matter how many Server instances exist.
var (
	promOnce sync.Once
	promHTTP *fiberprometheus.FiberPrometheus
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo         repository.UserRepository
	followRepo       repository.FollowRepository
	notificationRepo repository.NotificationRepository

	relCache *followcache.Cache
	notifier *notifications.Notifier
	hub      *notifications.Hub
	flags    *featureflags.Manager

	userService         *service.UserService
	followService       *service.FollowService
	notificationService *service.NotificationService
	avatarService       *service.AvatarService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.Connect(cfg.RedisURL)

	var blobStore blob.Store
	if cfg.AvatarBucket != "" {
		blobStore, err = blob.NewS3Store(context.Background(), cfg.AvatarBucket, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("blob store init failed: %w", err)
		}
	}

	return NewServerWithDeps(cfg, db, redisClient, blobStore)
}

// NewServerWithDeps creates a Server using already-initialized
// dependencies. Tests and the bootstrap layer use this directly.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, blobStore blob.Store) (*Server, error) {
	shutdownCtx, shutdownFn := context.WithCancel(context.Background())
	middleware.InitMiddleware(cfg)
	promOnce.Do(func() {
		promHTTP = middleware.InitMetrics("irtzalink-api")
	})

	server := &Server{
		config:           cfg,
		db:               db,
		redis:            redisClient,
		promMiddleware:   promHTTP,
		shutdownCtx:      shutdownCtx,
		shutdownFn:       shutdownFn,
		userRepo:         repository.NewUserRepository(db),
		followRepo:       repository.NewFollowRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
	}

	// The relationship cache persists to Redis when available and
	// degrades to memory-only otherwise.
	var store followcache.KeyValueStore
	if redisClient != nil {
		store = followcache.NewRedisStore(redisClient)
	}
	server.relCache = followcache.New(store, nil)
	server.relCache.StartSweeper(shutdownCtx)

	server.notifier = notifications.NewNotifier(redisClient, nil)
	server.hub = notifications.NewHub(server.notifier, nil)
	server.flags = featureflags.NewManager(cfg.FeatureFlags)

	server.userService = service.NewUserService(server.userRepo, cfg.JWTSecret, nil)
	server.followService = service.NewFollowService(
		server.followRepo, server.userRepo, server.notificationRepo,
		server.relCache, server.notifier, nil)
	server.notificationService = service.NewNotificationService(
		server.notificationRepo, server.userRepo, server.notifier, nil)
	if blobStore != nil {
		server.avatarService = service.NewAvatarService(server.userRepo, blobStore, nil)
	}

	return server, nil
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

	// CORS runs before middlewares that can short-circuit, so browser
	// clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting, per IP.
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
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
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "IrtzaLink Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Public profile routes. Optional auth lets a signed-in visit
	// leave a notification for the profile owner.
	api.Get("/profiles/:username", middleware.OptionalAuth, s.GetPublicProfile)
	api.Get("/usernames/:username/available", s.CheckUsername)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	me := protected.Group("/me")
	me.Get("/", s.GetMyProfile)
	me.Put("/", s.UpdateMyProfile)
	me.Get("/flags", s.GetFeatureFlags)
	me.Post("/avatar", middleware.RateLimit(s.redis, 10, 10*time.Minute, "avatar"), s.UploadAvatar)
	me.Get("/avatar-url", s.GetAvatarURL)

	users := protected.Group("/users")
	users.Get("/search", s.SearchUsers)
	// Specific /:id/:resource routes before the generic /:id route.
	users.Get("/:id/relationship", s.GetRelationship)
	users.Post("/:id/follow", middleware.RateLimit(s.redis, 30, time.Minute, "follow"), s.FollowUser)
	users.Delete("/:id/follow", middleware.RateLimit(s.redis, 30, time.Minute, "follow"), s.UnfollowUser)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Get("/:id/counts", s.GetFollowCounts)
	users.Get("/:id", s.GetUserProfile)

	nots := protected.Group("/notifications")
	nots.Get("/", s.GetNotifications)
	nots.Get("/unread-count", s.GetUnreadCount)
	nots.Post("/read-all", s.MarkAllNotificationsRead)
	nots.Post("/:id/read", s.MarkNotificationRead)

	// Live notification stream
	ws := api.Group("/ws", middleware.WebSocketAuthRequired)
	ws.Get("/notifications", s.NotificationSocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: the relationship cache and live notifications
	// degrade without it, so it never fails readiness.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds (once) and returns the configured Fiber application.
func (s *Server) App() *fiber.App {
	if s.app == nil {
		s.app = fiber.New(fiber.Config{
			AppName:      "IrtzaLink API",
			ErrorHandler: s.errorHandler,
		})
		s.SetupMiddleware(s.app)
		s.SetupRoutes(s.app)
	}
	return s.app
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	return s.App().Listen(":" + s.config.Port)
}

// Shutdown stops background workers and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()
	if s.app == nil {
		return nil
	}
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
