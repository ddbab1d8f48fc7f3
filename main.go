package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/diegoferreirapinto/document-management-system/internal/di"
	"github.com/diegoferreirapinto/document-management-system/internal/domain"
	"github.com/diegoferreirapinto/document-management-system/internal/middleware"
	"github.com/diegoferreirapinto/document-management-system/internal/repository"
	"github.com/diegoferreirapinto/document-management-system/internal/service"
	"github.com/diegoferreirapinto/document-management-system/internal/storage"
	"github.com/diegoferreirapinto/document-management-system/pkg/config"
	"github.com/diegoferreirapinto/document-management-system/pkg/database"
	"github.com/diegoferreirapinto/document-management-system/pkg/logger"
	"github.com/diegoferreirapinto/document-management-system/pkg/redis"
	"github.com/diegoferreirapinto/document-management-system/pkg/telemetry"
)

const (
	loginFailThreshold = 5
	loginFailWindow    = time.Minute

	seedAdminUsername = "admin"
	seedAdminPassword = "admin123"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       "info",
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if cfg.App.Debug {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Document Management Service...")

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	} else if telemetryCfg.Enabled {
		appLog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(ctx)

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
		ServiceName:     cfg.App.Name,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Initialize Redis
	redisClient, err := redis.NewClient(ctx, &redis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()
	appLog.Info(fmt.Sprintf("Redis connected (%s)", cfg.Redis.Addr()))

	// Initialize file storage
	fileStore, err := storage.NewLocalFileStore(cfg.Storage.UploadDir)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("File storage initialization failed: %v", err))
	}

	// Initialize event publisher (opt-in)
	var publisher service.EventPublisher = service.NewNoOpEventPublisher()
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Kafka producer initialization failed: %v", err))
		}
		publisher = kafkaPublisher
		appLog.Info(fmt.Sprintf("Kafka event publisher ready (topic: %s)", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	// Get JWT secret from environment in production
	jwtSecret := cfg.JWT.Secret
	if envSecret := os.Getenv("JWT_SECRET"); envSecret != "" {
		jwtSecret = envSecret
	}
	if cfg.IsProduction() && jwtSecret == "your-secret-key-change-in-production" {
		appLog.Fatal("JWT_SECRET must be set in production")
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		UserRepo:       repository.NewPostgresUserRepository(db.Pool()),
		DocumentRepo:   repository.NewPostgresDocumentRepository(db.Pool()),
		AuditRepo:      repository.NewPostgresAuditRepository(db.Pool()),
		LoginLimiter:   repository.NewRedisLoginLimiter(redisClient.Client(), loginFailThreshold, loginFailWindow),
		FileStore:      fileStore,
		EventPublisher: publisher,
		AuthConfig: &service.AuthServiceConfig{
			JWTSecret:         jwtSecret,
			AccessTokenExpiry: cfg.JWT.AccessTokenTTL,
			BcryptCost:        12,
		},
		MaxUploadSize: cfg.Storage.MaxUploadSize,
	})

	// Seed the bootstrap admin account on an empty user table
	if err := container.AuthService.SeedAdminUser(ctx, seedAdminUsername, seedAdminPassword); err != nil {
		appLog.Fatal(fmt.Sprintf("Admin seeding failed: %v", err))
	}

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(cfg.App.Name))
	}

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuditTrail(container.AuditService))
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", container.AuthHandler.Login)
			auth.POST("/register", container.AuthHandler.Register)

			protected := auth.Group("")
			protected.Use(middleware.RequireAuth(container.AuthService))
			{
				protected.GET("/me", container.AuthHandler.Me)
			}
		}

		documents := v1.Group("/documents")
		documents.Use(middleware.RequireAuth(container.AuthService))
		{
			documents.GET("", container.DocumentHandler.List)
			documents.GET("/stats", container.DocumentHandler.Stats)
			documents.POST("/upload", container.DocumentHandler.Upload)
			documents.GET("/:id", container.DocumentHandler.Get)
			documents.PATCH("/:id", container.DocumentHandler.Update)
			documents.GET("/:id/history", container.DocumentHandler.History)
			documents.GET("/:id/download", container.DocumentHandler.Download)
			documents.PUT("/:id/submit", container.DocumentHandler.Submit)
			documents.POST("/:id/review", container.DocumentHandler.Review)
		}

		audit := v1.Group("/audit")
		audit.Use(middleware.RequireAuth(container.AuthService))
		audit.Use(middleware.RequireAnyRole(domain.RoleAdmin))
		{
			audit.GET("/logs", container.AuditHandler.List)
			audit.GET("/export", container.AuditHandler.Export)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Document Management Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
