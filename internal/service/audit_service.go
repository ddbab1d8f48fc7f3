package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
	"github.com/diegoferreirapinto/document-management-system/internal/dto"
	"github.com/diegoferreirapinto/document-management-system/internal/repository"
	"github.com/diegoferreirapinto/document-management-system/pkg/telemetry"
)

// csvHeader is the column layout of audit log exports
var csvHeader = []string{"id", "timestamp", "action", "entity_type", "user_id", "username", "request_path", "ip_address", "response_status"}

// AuditService defines audit log operations
type AuditService interface {
	// Record persists one audit log entry
	Record(ctx context.Context, log *domain.AuditLog) error
	// List retrieves audit logs matching the query
	List(ctx context.Context, query *dto.ListAuditLogsQuery) ([]*domain.AuditLog, int, error)
	// ExportCSV streams all logs matching the query as CSV
	ExportCSV(ctx context.Context, query *dto.ListAuditLogsQuery, w io.Writer) error
}

// auditService implements AuditService
type auditService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditService creates a new AuditService
func NewAuditService(auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// Record persists one audit log entry
func (s *auditService) Record(ctx context.Context, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}
	return s.auditRepo.Create(ctx, log)
}

// List retrieves audit logs matching the query
func (s *auditService) List(ctx context.Context, query *dto.ListAuditLogsQuery) ([]*domain.AuditLog, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.audit.list")
	defer span.End()

	filter, err := toFilter(query)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	logs, total, err := s.auditRepo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("count", len(logs)))
	span.SetStatus(codes.Ok, "")
	return logs, total, nil
}

// ExportCSV streams all logs matching the query as CSV, paging through the
// repository in fixed-size batches
func (s *auditService) ExportCSV(ctx context.Context, query *dto.ListAuditLogsQuery, w io.Writer) error {
	ctx, span := telemetry.StartSpan(ctx, "service.audit.export_csv")
	defer span.End()

	filter, err := toFilter(query)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	filter.Skip = 0
	filter.Limit = 500

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	for {
		logs, _, err := s.auditRepo.List(ctx, filter)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		for _, log := range logs {
			record := []string{
				log.ID,
				log.Timestamp.UTC().Format(time.RFC3339),
				log.Action,
				log.EntityType,
				log.UserID,
				log.Username,
				log.RequestPath,
				log.IPAddress,
				strconv.Itoa(log.ResponseStatus),
			}
			if err := cw.Write(record); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
		}
		if len(logs) < filter.Limit {
			break
		}
		filter.Skip += filter.Limit
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// toFilter converts a query into a repository filter, parsing date bounds
func toFilter(query *dto.ListAuditLogsQuery) (*domain.AuditLogFilter, error) {
	filter := &domain.AuditLogFilter{
		Action: query.Action,
		UserID: query.UserID,
		Skip:   query.Skip,
		Limit:  query.Limit,
	}
	if query.DateFrom != "" {
		t, err := time.Parse(time.RFC3339, query.DateFrom)
		if err != nil {
			return nil, err
		}
		filter.DateFrom = &t
	}
	if query.DateTo != "" {
		t, err := time.Parse(time.RFC3339, query.DateTo)
		if err != nil {
			return nil, err
		}
		filter.DateTo = &t
	}
	return filter, nil
}
