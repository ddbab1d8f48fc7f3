package repository

import (
	"context"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
)

// UserRepository defines user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, user *domain.User) error
}

// DocumentRepository defines document and review history data access.
// UpdateStatus appends the matching history entry in the same transaction.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, filter *DocumentFilter) ([]*domain.Document, int, error)
	Update(ctx context.Context, doc *domain.Document) error
	UpdateStatus(ctx context.Context, doc *domain.Document, previous domain.DocumentStatus, entry *domain.ReviewHistoryEntry) error
	GetHistory(ctx context.Context, documentID string) ([]*domain.ReviewHistoryEntry, error)
	CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int, error)
}

// DocumentFilter narrows document listings
type DocumentFilter struct {
	Status   domain.DocumentStatus
	AuthorID string
	Skip     int
	Limit    int
}

// AuditLogRepository defines audit log data access
type AuditLogRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	List(ctx context.Context, filter *domain.AuditLogFilter) ([]*domain.AuditLog, int, error)
}

// LoginAttemptLimiter throttles repeated failed logins per username
type LoginAttemptLimiter interface {
	RecordFailure(ctx context.Context, username string) (int, error)
	IsBlocked(ctx context.Context, username string) (bool, error)
	Reset(ctx context.Context, username string) error
}
