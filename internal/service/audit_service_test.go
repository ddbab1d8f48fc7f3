package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
	"github.com/diegoferreirapinto/document-management-system/internal/dto"
)

// mockAuditRepository is an in-memory AuditLogRepository for testing
type mockAuditRepository struct {
	logs []*domain.AuditLog
}

func (m *mockAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockAuditRepository) List(ctx context.Context, filter *domain.AuditLogFilter) ([]*domain.AuditLog, int, error) {
	var matched []*domain.AuditLog
	for _, log := range m.logs {
		if filter.Action != "" && log.Action != filter.Action {
			continue
		}
		if filter.UserID != "" && log.UserID != filter.UserID {
			continue
		}
		if filter.DateFrom != nil && log.Timestamp.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && log.Timestamp.After(*filter.DateTo) {
			continue
		}
		matched = append(matched, log)
	}
	total := len(matched)
	if filter.Skip >= total {
		return nil, total, nil
	}
	matched = matched[filter.Skip:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func TestAuditService_Record(t *testing.T) {
	repo := &mockAuditRepository{}
	svc := NewAuditService(repo)

	log := &domain.AuditLog{
		Action:         "POST",
		EntityType:     "document",
		UserID:         "u1",
		Username:       "alice",
		RequestPath:    "/api/v1/documents/upload",
		IPAddress:      "10.0.0.1",
		ResponseStatus: 201,
	}
	if err := svc.Record(context.Background(), log); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if log.ID == "" {
		t.Error("expected generated ID")
	}
	if log.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
	if len(repo.logs) != 1 {
		t.Errorf("stored logs = %d, want 1", len(repo.logs))
	}
}

func TestAuditService_List(t *testing.T) {
	repo := &mockAuditRepository{}
	svc := NewAuditService(repo)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, action := range []string{"GET", "POST", "GET"} {
		repo.logs = append(repo.logs, &domain.AuditLog{
			ID:        "log-" + string(rune('a'+i)),
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Action:    action,
			UserID:    "u1",
		})
	}

	t.Run("filter by action", func(t *testing.T) {
		logs, total, err := svc.List(ctx, &dto.ListAuditLogsQuery{Action: "GET", Limit: 50})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if total != 2 || len(logs) != 2 {
			t.Errorf("got %d/%d, want 2/2", len(logs), total)
		}
	})

	t.Run("filter by date range", func(t *testing.T) {
		logs, _, err := svc.List(ctx, &dto.ListAuditLogsQuery{
			DateFrom: base.Add(30 * time.Minute).Format(time.RFC3339),
			DateTo:   base.Add(90 * time.Minute).Format(time.RFC3339),
			Limit:    50,
		})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(logs) != 1 {
			t.Errorf("got %d logs, want 1", len(logs))
		}
	})

	t.Run("bad date", func(t *testing.T) {
		if _, _, err := svc.List(ctx, &dto.ListAuditLogsQuery{DateFrom: "yesterday", Limit: 50}); err == nil {
			t.Error("List() with bad date must fail")
		}
	})
}

func TestAuditService_ExportCSV(t *testing.T) {
	repo := &mockAuditRepository{}
	svc := NewAuditService(repo)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.logs = append(repo.logs, &domain.AuditLog{
		ID:             "log-1",
		Timestamp:      ts,
		Action:         "POST",
		EntityType:     "document",
		UserID:         "u1",
		Username:       "alice",
		RequestPath:    "/api/v1/documents/upload",
		IPAddress:      "10.0.0.1",
		ResponseStatus: 201,
	})

	var buf bytes.Buffer
	if err := svc.ExportCSV(context.Background(), &dto.ListAuditLogsQuery{}, &buf); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv parse error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want header + 1 row", len(records))
	}
	if records[0][0] != "id" || records[0][2] != "action" {
		t.Errorf("unexpected header: %v", records[0])
	}
	row := records[1]
	if row[0] != "log-1" || row[1] != "2026-03-01T12:00:00Z" || row[8] != "201" {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestAuditService_ExportCSV_Pages(t *testing.T) {
	repo := &mockAuditRepository{}
	svc := NewAuditService(repo)

	for i := 0; i < 750; i++ {
		repo.logs = append(repo.logs, &domain.AuditLog{
			ID:        "log",
			Timestamp: time.Now(),
			Action:    "GET",
		})
	}

	var buf bytes.Buffer
	if err := svc.ExportCSV(context.Background(), &dto.ListAuditLogsQuery{}, &buf); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv parse error = %v", err)
	}
	if len(records) != 751 {
		t.Errorf("records = %d, want header + 750 rows", len(records))
	}
}
