package di

import (
	"github.com/diegoferreirapinto/document-management-system/internal/handler"
	"github.com/diegoferreirapinto/document-management-system/internal/repository"
	"github.com/diegoferreirapinto/document-management-system/internal/service"
	"github.com/diegoferreirapinto/document-management-system/internal/storage"
	"github.com/diegoferreirapinto/document-management-system/pkg/database"
	"github.com/diegoferreirapinto/document-management-system/pkg/redis"
)

// Container holds all dependencies for the document service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	UserRepo     repository.UserRepository
	DocumentRepo repository.DocumentRepository
	AuditRepo    repository.AuditLogRepository
	LoginLimiter repository.LoginAttemptLimiter

	// Storage
	FileStore storage.FileStore

	// Publishers
	EventPublisher service.EventPublisher

	// Services
	AuthService     service.AuthService
	DocumentService service.DocumentService
	AuditService    service.AuditService

	// Handlers
	HealthHandler   *handler.HealthHandler
	AuthHandler     *handler.AuthHandler
	DocumentHandler *handler.DocumentHandler
	AuditHandler    *handler.AuditHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *redis.Client
	UserRepo       repository.UserRepository
	DocumentRepo   repository.DocumentRepository
	AuditRepo      repository.AuditLogRepository
	LoginLimiter   repository.LoginAttemptLimiter
	FileStore      storage.FileStore
	EventPublisher service.EventPublisher
	AuthConfig     *service.AuthServiceConfig
	MaxUploadSize  int64
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		UserRepo:       cfg.UserRepo,
		DocumentRepo:   cfg.DocumentRepo,
		AuditRepo:      cfg.AuditRepo,
		LoginLimiter:   cfg.LoginLimiter,
		FileStore:      cfg.FileStore,
		EventPublisher: cfg.EventPublisher,
	}

	// Initialize services
	c.AuthService = service.NewAuthService(c.UserRepo, c.LoginLimiter, cfg.AuthConfig)
	c.DocumentService = service.NewDocumentService(c.DocumentRepo, c.FileStore, c.EventPublisher)
	c.AuditService = service.NewAuditService(c.AuditRepo)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService)
	c.DocumentHandler = handler.NewDocumentHandler(c.DocumentService, cfg.MaxUploadSize)
	c.AuditHandler = handler.NewAuditHandler(c.AuditService)

	return c
}
