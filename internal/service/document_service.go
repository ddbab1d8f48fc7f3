package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
	"github.com/diegoferreirapinto/document-management-system/internal/dto"
	"github.com/diegoferreirapinto/document-management-system/internal/repository"
	"github.com/diegoferreirapinto/document-management-system/internal/storage"
	"github.com/diegoferreirapinto/document-management-system/pkg/logger"
	"github.com/diegoferreirapinto/document-management-system/pkg/telemetry"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNotAuthor        = errors.New("only the author may perform this action")
	ErrActionForbidden  = errors.New("action not allowed for this user at this stage")
	ErrCommentsRequired = errors.New("comments are required for review decisions")
)

// DocumentService defines the document workflow operations
type DocumentService interface {
	// Create stores the uploaded file and creates a draft document
	Create(ctx context.Context, actor *domain.User, req *dto.CreateDocumentRequest, file io.Reader, size int64, contentType string) (*domain.Document, error)
	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)
	// List retrieves documents matching the query for the given viewer
	List(ctx context.Context, viewer *domain.User, query *dto.ListDocumentsQuery) ([]*domain.Document, int, error)
	// Update updates a document's metadata while it is editable
	Update(ctx context.Context, actor *domain.User, id string, req *dto.UpdateDocumentRequest) (*domain.Document, error)
	// Submit moves a draft or rejected document into review
	Submit(ctx context.Context, actor *domain.User, id string) (*domain.Document, error)
	// Review applies an approve or reject decision at the document's stage
	Review(ctx context.Context, actor *domain.User, id string, req *dto.ReviewRequest) (*domain.Document, error)
	// GetHistory retrieves the review ledger of a document
	GetHistory(ctx context.Context, id string) ([]*domain.ReviewHistoryEntry, error)
	// OpenFile returns the document and a reader for its stored file
	OpenFile(ctx context.Context, id string) (*domain.Document, io.ReadCloser, error)
	// Stats returns per-status document counts
	Stats(ctx context.Context) (*dto.DocumentStatsResponse, error)
}

// documentService implements DocumentService
type documentService struct {
	docRepo   repository.DocumentRepository
	fileStore storage.FileStore
	publisher EventPublisher
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	docRepo repository.DocumentRepository,
	fileStore storage.FileStore,
	publisher EventPublisher,
) DocumentService {
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &documentService{
		docRepo:   docRepo,
		fileStore: fileStore,
		publisher: publisher,
	}
}

// Create stores the uploaded file and creates a draft document
func (s *documentService) Create(ctx context.Context, actor *domain.User, req *dto.CreateDocumentRequest, file io.Reader, size int64, contentType string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.document.create")
	defer span.End()

	span.SetAttributes(attribute.String("author_id", actor.ID))

	if !actor.HasAnyRole(domain.RoleAuthor, domain.RoleAdmin) {
		span.SetStatus(codes.Error, "forbidden")
		return nil, ErrActionForbidden
	}

	path, err := s.fileStore.Save(ctx, file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := time.Now()
	doc := &domain.Document{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Version:     1,
		AuthorID:    actor.ID,
		AuthorName:  actor.FullName,
		Status:      domain.StatusDraft,
		FilePath:    path,
		FileSize:    size,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		// don't leave the orphaned file behind
		_ = s.fileStore.Delete(ctx, path)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.publisher.PublishDocumentCreated(ctx, doc, actor.ID); err != nil {
		logger.Get().ErrorContext(ctx, "failed to publish document created event",
			"document_id", doc.ID, "error", err)
	}

	span.SetAttributes(attribute.String("document_id", doc.ID))
	span.SetStatus(codes.Ok, "")
	return doc, nil
}

// Get retrieves a document by ID
func (s *documentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.document.get")
	defer span.End()

	span.SetAttributes(attribute.String("document_id", id))

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if doc == nil {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrDocumentNotFound
	}

	span.SetStatus(codes.Ok, "")
	return doc, nil
}

// List retrieves documents matching the query for the given viewer
func (s *documentService) List(ctx context.Context, viewer *domain.User, query *dto.ListDocumentsQuery) ([]*domain.Document, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.document.list")
	defer span.End()

	filter := &repository.DocumentFilter{
		Status: domain.DocumentStatus(query.Status),
		Skip:   query.Skip,
		Limit:  query.Limit,
	}
	if query.MyDocuments {
		filter.AuthorID = viewer.ID
	}

	docs, total, err := s.docRepo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("count", len(docs)))
	span.SetStatus(codes.Ok, "")
	return docs, total, nil
}

// Update updates a document's metadata while it is editable
func (s *documentService) Update(ctx context.Context, actor *domain.User, id string, req *dto.UpdateDocumentRequest) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.document.update")
	defer span.End()

	span.SetAttributes(attribute.String("document_id", id))

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.AuthorID != actor.ID {
		span.SetStatus(codes.Error, "not author")
		return nil, ErrNotAuthor
	}
	if !doc.Status.IsResubmittable() {
		span.SetStatus(codes.Error, "not editable")
		return nil, domain.ErrInvalidTransition
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		doc.Title = title
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		doc.Description = desc
	}

	if err := s.docRepo.Update(ctx, doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return doc, nil
}

// Submit moves a draft or rejected document into review. Resubmitting a
// rejected document bumps the version.
func (s *documentService) Submit(ctx context.Context, actor *domain.User, id string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.document.submit")
	defer span.End()

	span.SetAttributes(
		attribute.String("document_id", id),
		attribute.String("actor_id", actor.ID),
	)

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.AuthorID != actor.ID {
		span.SetStatus(codes.Error, "not author")
		return nil, ErrNotAuthor
	}

	previous := doc.Status
	next, err := domain.NextStatus(previous, domain.ActionSubmit)
	if err != nil {
		span.SetStatus(codes.Error, "invalid transition")
		return nil, err
	}

	doc.Status = next
	if previous == domain.StatusRejected {
		doc.Version++
	}
	doc.UpdatedAt = time.Now()

	entry := &domain.ReviewHistoryEntry{
		ID:           uuid.New().String(),
		DocumentID:   doc.ID,
		Action:       domain.HistorySubmitted,
		ReviewerID:   actor.ID,
		ReviewerName: actor.FullName,
		CreatedAt:    doc.UpdatedAt,
	}

	if err := s.docRepo.UpdateStatus(ctx, doc, previous, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.publisher.PublishDocumentSubmitted(ctx, doc, actor.ID); err != nil {
		logger.Get().ErrorContext(ctx, "failed to publish document submitted event",
			"document_id", doc.ID, "error", err)
	}

	span.SetStatus(codes.Ok, "")
	return doc, nil
}

// Review applies an approve or reject decision at the document's stage.
// Approving at the review stage advances to pending_approval; approving at
// the approval stage finalizes the document. Both decisions require a
// non-blank comment.
func (s *documentService) Review(ctx context.Context, actor *domain.User, id string, req *dto.ReviewRequest) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.document.review")
	defer span.End()

	span.SetAttributes(
		attribute.String("document_id", id),
		attribute.String("actor_id", actor.ID),
		attribute.String("action", req.Action),
	)

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	caps := domain.ComputeCapabilities(doc, actor)
	switch doc.Status {
	case domain.StatusPendingReview:
		if !caps.CanReview {
			span.SetStatus(codes.Error, "forbidden")
			return nil, ErrActionForbidden
		}
	case domain.StatusPendingApproval:
		if !caps.CanApprove {
			span.SetStatus(codes.Error, "forbidden")
			return nil, ErrActionForbidden
		}
	default:
		span.SetStatus(codes.Error, "invalid transition")
		return nil, domain.ErrInvalidTransition
	}

	action := domain.TransitionAction(req.Action)
	comments := strings.TrimSpace(req.Comments)
	if comments == "" {
		span.SetStatus(codes.Error, "comments required")
		return nil, ErrCommentsRequired
	}

	previous := doc.Status
	next, err := domain.NextStatus(previous, action)
	if err != nil {
		span.SetStatus(codes.Error, "invalid transition")
		return nil, err
	}

	doc.Status = next
	doc.UpdatedAt = time.Now()

	historyAction := domain.HistoryApproved
	if action == domain.ActionReject {
		historyAction = domain.HistoryRejected
	}

	entry := &domain.ReviewHistoryEntry{
		ID:           uuid.New().String(),
		DocumentID:   doc.ID,
		Action:       historyAction,
		ReviewerID:   actor.ID,
		ReviewerName: actor.FullName,
		Comments:     comments,
		CreatedAt:    doc.UpdatedAt,
	}

	if err := s.docRepo.UpdateStatus(ctx, doc, previous, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	switch doc.Status {
	case domain.StatusApproved:
		if err := s.publisher.PublishDocumentApproved(ctx, doc, actor.ID); err != nil {
			logger.Get().ErrorContext(ctx, "failed to publish document approved event",
				"document_id", doc.ID, "error", err)
		}
	case domain.StatusRejected:
		if err := s.publisher.PublishDocumentRejected(ctx, doc, actor.ID); err != nil {
			logger.Get().ErrorContext(ctx, "failed to publish document rejected event",
				"document_id", doc.ID, "error", err)
		}
	}

	span.SetStatus(codes.Ok, "")
	return doc, nil
}

// GetHistory retrieves the review ledger of a document
func (s *documentService) GetHistory(ctx context.Context, id string) ([]*domain.ReviewHistoryEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.document.get_history")
	defer span.End()

	span.SetAttributes(attribute.String("document_id", id))

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	entries, err := s.docRepo.GetHistory(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return entries, nil
}

// OpenFile returns the document and a reader for its stored file
func (s *documentService) OpenFile(ctx context.Context, id string) (*domain.Document, io.ReadCloser, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.document.open_file")
	defer span.End()

	span.SetAttributes(attribute.String("document_id", id))

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	r, err := s.fileStore.Open(ctx, doc.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			span.SetStatus(codes.Error, "file missing")
			return nil, nil, ErrDocumentNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	span.SetStatus(codes.Ok, "")
	return doc, r, nil
}

// Stats returns per-status document counts
func (s *documentService) Stats(ctx context.Context) (*dto.DocumentStatsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.document.stats")
	defer span.End()

	counts, err := s.docRepo.CountByStatus(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	stats := &dto.DocumentStatsResponse{
		Draft:           counts[domain.StatusDraft],
		PendingReview:   counts[domain.StatusPendingReview],
		PendingApproval: counts[domain.StatusPendingApproval],
		Approved:        counts[domain.StatusApproved],
		Rejected:        counts[domain.StatusRejected],
	}
	stats.Total = stats.Draft + stats.PendingReview + stats.PendingApproval + stats.Approved + stats.Rejected

	span.SetStatus(codes.Ok, "")
	return stats, nil
}
