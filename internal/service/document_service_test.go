package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
	"github.com/diegoferreirapinto/document-management-system/internal/dto"
	"github.com/diegoferreirapinto/document-management-system/internal/repository"
)

// mockDocumentRepository is an in-memory DocumentRepository for testing
type mockDocumentRepository struct {
	docs    map[string]*domain.Document
	history map[string][]*domain.ReviewHistoryEntry
}

func newMockDocumentRepository() *mockDocumentRepository {
	return &mockDocumentRepository{
		docs:    make(map[string]*domain.Document),
		history: make(map[string][]*domain.ReviewHistoryEntry),
	}
}

func (m *mockDocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *mockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (m *mockDocumentRepository) List(ctx context.Context, filter *repository.DocumentFilter) ([]*domain.Document, int, error) {
	var out []*domain.Document
	for _, doc := range m.docs {
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if filter.AuthorID != "" && doc.AuthorID != filter.AuthorID {
			continue
		}
		copied := *doc
		out = append(out, &copied)
	}
	return out, len(out), nil
}

func (m *mockDocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	if _, ok := m.docs[doc.ID]; !ok {
		return repository.ErrDocumentNotFound
	}
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *mockDocumentRepository) UpdateStatus(ctx context.Context, doc *domain.Document, previous domain.DocumentStatus, entry *domain.ReviewHistoryEntry) error {
	stored, ok := m.docs[doc.ID]
	if !ok || stored.Status != previous {
		return repository.ErrStatusConflict
	}
	copied := *doc
	m.docs[doc.ID] = &copied
	m.history[doc.ID] = append(m.history[doc.ID], entry)
	return nil
}

func (m *mockDocumentRepository) GetHistory(ctx context.Context, documentID string) ([]*domain.ReviewHistoryEntry, error) {
	return m.history[documentID], nil
}

func (m *mockDocumentRepository) CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int, error) {
	counts := map[domain.DocumentStatus]int{}
	for _, doc := range m.docs {
		counts[doc.Status]++
	}
	return counts, nil
}

// mockFileStore stores file contents in memory
type mockFileStore struct {
	files map[string][]byte
	n     int
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{files: make(map[string][]byte)}
}

func (m *mockFileStore) Save(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.n++
	path := "file-" + string(rune('a'+m.n)) + ".pdf"
	m.files[path] = data
	return path, nil
}

func (m *mockFileStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (m *mockFileStore) Delete(ctx context.Context, path string) error {
	delete(m.files, path)
	return nil
}

// capturePublisher records published event types
type capturePublisher struct {
	events []domain.DocumentEventType
}

func (p *capturePublisher) PublishDocumentCreated(ctx context.Context, doc *domain.Document, actorID string) error {
	p.events = append(p.events, domain.DocumentEventCreated)
	return nil
}

func (p *capturePublisher) PublishDocumentSubmitted(ctx context.Context, doc *domain.Document, actorID string) error {
	p.events = append(p.events, domain.DocumentEventSubmitted)
	return nil
}

func (p *capturePublisher) PublishDocumentApproved(ctx context.Context, doc *domain.Document, actorID string) error {
	p.events = append(p.events, domain.DocumentEventApproved)
	return nil
}

func (p *capturePublisher) PublishDocumentRejected(ctx context.Context, doc *domain.Document, actorID string) error {
	p.events = append(p.events, domain.DocumentEventRejected)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

var (
	testAuthor   = &domain.User{ID: "author-1", FullName: "Ana Author", Roles: []domain.Role{domain.RoleAuthor}}
	testReviewer = &domain.User{ID: "reviewer-1", FullName: "Rui Reviewer", Roles: []domain.Role{domain.RoleReviewer}}
	testApprover = &domain.User{ID: "approver-1", FullName: "Alda Approver", Roles: []domain.Role{domain.RoleApprover}}
)

func newTestDocumentService() (DocumentService, *mockDocumentRepository, *mockFileStore, *capturePublisher) {
	repo := newMockDocumentRepository()
	store := newMockFileStore()
	pub := &capturePublisher{}
	return NewDocumentService(repo, store, pub), repo, store, pub
}

func createTestDocument(t *testing.T, svc DocumentService) *domain.Document {
	t.Helper()
	doc, err := svc.Create(context.Background(), testAuthor,
		&dto.CreateDocumentRequest{Title: "Quarterly Report", Description: "Q3 figures"},
		strings.NewReader("%PDF-1.4 content"), 16, "application/pdf")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return doc
}

func TestDocumentService_Create(t *testing.T) {
	svc, _, store, pub := newTestDocumentService()

	doc := createTestDocument(t, svc)

	if doc.Status != domain.StatusDraft {
		t.Errorf("Status = %s, want draft", doc.Status)
	}
	if doc.Version != 1 {
		t.Errorf("Version = %d, want 1", doc.Version)
	}
	if doc.AuthorID != testAuthor.ID {
		t.Errorf("AuthorID = %s, want %s", doc.AuthorID, testAuthor.ID)
	}
	if len(store.files) != 1 {
		t.Errorf("stored files = %d, want 1", len(store.files))
	}
	if len(pub.events) != 1 || pub.events[0] != domain.DocumentEventCreated {
		t.Errorf("events = %v, want [document.created]", pub.events)
	}
}

func TestDocumentService_CreateRequiresAuthorRole(t *testing.T) {
	svc, _, store, _ := newTestDocumentService()

	_, err := svc.Create(context.Background(), testReviewer,
		&dto.CreateDocumentRequest{Title: "Nope"},
		strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	if !errors.Is(err, ErrActionForbidden) {
		t.Errorf("Create() error = %v, want ErrActionForbidden", err)
	}
	if len(store.files) != 0 {
		t.Error("no file may be stored for a forbidden create")
	}
}

func TestDocumentService_ListMyDocuments(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestDocumentService()

	createTestDocument(t, svc)
	createTestDocument(t, svc)

	admin := &domain.User{ID: "admin-1", FullName: "Ada Admin", Roles: []domain.Role{domain.RoleAdmin}}
	if _, err := svc.Create(ctx, admin,
		&dto.CreateDocumentRequest{Title: "Admin Doc"},
		strings.NewReader("%PDF-1.4"), 8, "application/pdf"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	docs, total, err := svc.List(ctx, testAuthor, &dto.ListDocumentsQuery{MyDocuments: true, Limit: 20})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || len(docs) != 2 {
		t.Fatalf("List() = %d docs (total %d), want 2", len(docs), total)
	}
	for _, doc := range docs {
		if doc.AuthorID != testAuthor.ID {
			t.Errorf("my_documents listing leaked document by %s", doc.AuthorID)
		}
	}

	_, total, err = svc.List(ctx, testAuthor, &dto.ListDocumentsQuery{Limit: 20})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 {
		t.Errorf("unfiltered total = %d, want 3", total)
	}
}

func TestDocumentService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("author submits draft", func(t *testing.T) {
		svc, repo, _, pub := newTestDocumentService()
		doc := createTestDocument(t, svc)

		updated, err := svc.Submit(ctx, testAuthor, doc.ID)
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if updated.Status != domain.StatusPendingReview {
			t.Errorf("Status = %s, want pending_review", updated.Status)
		}
		if updated.Version != 1 {
			t.Errorf("Version = %d, want 1 on first submit", updated.Version)
		}

		history := repo.history[doc.ID]
		if len(history) != 1 || history[0].Action != domain.HistorySubmitted {
			t.Errorf("history = %v, want one submitted entry", history)
		}
		if pub.events[len(pub.events)-1] != domain.DocumentEventSubmitted {
			t.Errorf("last event = %v, want document.submitted", pub.events)
		}
	})

	t.Run("non-author cannot submit", func(t *testing.T) {
		svc, _, _, _ := newTestDocumentService()
		doc := createTestDocument(t, svc)

		if _, err := svc.Submit(ctx, testReviewer, doc.ID); !errors.Is(err, ErrNotAuthor) {
			t.Errorf("Submit() error = %v, want ErrNotAuthor", err)
		}
	})

	t.Run("cannot submit pending document", func(t *testing.T) {
		svc, _, _, _ := newTestDocumentService()
		doc := createTestDocument(t, svc)
		if _, err := svc.Submit(ctx, testAuthor, doc.ID); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}

		if _, err := svc.Submit(ctx, testAuthor, doc.ID); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("Submit() error = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("missing document", func(t *testing.T) {
		svc, _, _, _ := newTestDocumentService()
		if _, err := svc.Submit(ctx, testAuthor, "missing"); !errors.Is(err, ErrDocumentNotFound) {
			t.Errorf("Submit() error = %v, want ErrDocumentNotFound", err)
		}
	})
}

// advance moves a fresh document to the given status through the workflow
func advance(t *testing.T, svc DocumentService, doc *domain.Document, target domain.DocumentStatus) {
	t.Helper()
	ctx := context.Background()

	if _, err := svc.Submit(ctx, testAuthor, doc.ID); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if target == domain.StatusPendingReview {
		return
	}
	if _, err := svc.Review(ctx, testReviewer, doc.ID, &dto.ReviewRequest{Action: "approve", Comments: "ok"}); err != nil {
		t.Fatalf("Review() at review stage error = %v", err)
	}
	if target == domain.StatusPendingApproval {
		return
	}
	if _, err := svc.Review(ctx, testApprover, doc.ID, &dto.ReviewRequest{Action: "approve", Comments: "ok"}); err != nil {
		t.Fatalf("Review() at approval stage error = %v", err)
	}
}

func TestDocumentService_Review(t *testing.T) {
	ctx := context.Background()

	t.Run("reviewer approves to pending_approval", func(t *testing.T) {
		svc, _, _, _ := newTestDocumentService()
		doc := createTestDocument(t, svc)
		advance(t, svc, doc, domain.StatusPendingReview)

		updated, err := svc.Review(ctx, testReviewer, doc.ID, &dto.ReviewRequest{Action: "approve", Comments: "looks fine"})
		if err != nil {
			t.Fatalf("Review() error = %v", err)
		}
		if updated.Status != domain.StatusPendingApproval {
			t.Errorf("Status = %s, want pending_approval", updated.Status)
		}
	})

	t.Run("approver finalizes", func(t *testing.T) {
		svc, repo, _, pub := newTestDocumentService()
		doc := createTestDocument(t, svc)
		advance(t, svc, doc, domain.StatusPendingApproval)

		updated, err := svc.Review(ctx, testApprover, doc.ID, &dto.ReviewRequest{Action: "approve", Comments: "final sign-off"})
		if err != nil {
			t.Fatalf("Review() error = %v", err)
		}
		if updated.Status != domain.StatusApproved {
			t.Errorf("Status = %s, want approved", updated.Status)
		}
		if pub.events[len(pub.events)-1] != domain.DocumentEventApproved {
			t.Errorf("last event = %v, want document.approved", pub.events)
		}

		history := repo.history[doc.ID]
		if len(history) != 3 {
			t.Fatalf("history length = %d, want 3", len(history))
		}
		if history[2].Action != domain.HistoryApproved {
			t.Errorf("last history action = %s, want approved", history[2].Action)
		}
	})

	t.Run("reviewer cannot act at approval stage", func(t *testing.T) {
		svc, _, _, _ := newTestDocumentService()
		doc := createTestDocument(t, svc)
		advance(t, svc, doc, domain.StatusPendingApproval)

		_, err := svc.Review(ctx, testReviewer, doc.ID, &dto.ReviewRequest{Action: "approve", Comments: "ok"})
		if !errors.Is(err, ErrActionForbidden) {
			t.Errorf("Review() error = %v, want ErrActionForbidden", err)
		}
	})

	t.Run("author cannot review", func(t *testing.T) {
		svc, _, _, _ := newTestDocumentService()
		doc := createTestDocument(t, svc)
		advance(t, svc, doc, domain.StatusPendingReview)

		_, err := svc.Review(ctx, testAuthor, doc.ID, &dto.ReviewRequest{Action: "approve", Comments: "ok"})
		if !errors.Is(err, ErrActionForbidden) {
			t.Errorf("Review() error = %v, want ErrActionForbidden", err)
		}
	})

	t.Run("reject requires comments", func(t *testing.T) {
		svc, _, _, _ := newTestDocumentService()
		doc := createTestDocument(t, svc)
		advance(t, svc, doc, domain.StatusPendingReview)

		_, err := svc.Review(ctx, testReviewer, doc.ID, &dto.ReviewRequest{Action: "reject", Comments: "   "})
		if !errors.Is(err, ErrCommentsRequired) {
			t.Errorf("Review() error = %v, want ErrCommentsRequired", err)
		}
	})

	t.Run("approve requires comments", func(t *testing.T) {
		svc, repo, _, _ := newTestDocumentService()
		doc := createTestDocument(t, svc)
		advance(t, svc, doc, domain.StatusPendingReview)

		_, err := svc.Review(ctx, testReviewer, doc.ID, &dto.ReviewRequest{Action: "approve", Comments: "   "})
		if !errors.Is(err, ErrCommentsRequired) {
			t.Errorf("Review() error = %v, want ErrCommentsRequired", err)
		}

		stored, _ := repo.GetByID(ctx, doc.ID)
		if stored.Status != domain.StatusPendingReview {
			t.Errorf("Status = %s, must be unchanged", stored.Status)
		}
		if len(repo.history[doc.ID]) != 1 {
			t.Errorf("history length = %d, a blank approve must not append an entry", len(repo.history[doc.ID]))
		}
	})

	t.Run("reject with comments", func(t *testing.T) {
		svc, repo, _, pub := newTestDocumentService()
		doc := createTestDocument(t, svc)
		advance(t, svc, doc, domain.StatusPendingReview)

		updated, err := svc.Review(ctx, testReviewer, doc.ID, &dto.ReviewRequest{Action: "reject", Comments: "missing section 2"})
		if err != nil {
			t.Fatalf("Review() error = %v", err)
		}
		if updated.Status != domain.StatusRejected {
			t.Errorf("Status = %s, want rejected", updated.Status)
		}
		if pub.events[len(pub.events)-1] != domain.DocumentEventRejected {
			t.Errorf("last event = %v, want document.rejected", pub.events)
		}

		history := repo.history[doc.ID]
		last := history[len(history)-1]
		if last.Comments != "missing section 2" {
			t.Errorf("Comments = %q, want trimmed original", last.Comments)
		}
	})

	t.Run("approved document cannot be reviewed", func(t *testing.T) {
		svc, _, _, _ := newTestDocumentService()
		doc := createTestDocument(t, svc)
		advance(t, svc, doc, domain.StatusApproved)

		_, err := svc.Review(ctx, testApprover, doc.ID, &dto.ReviewRequest{Action: "approve", Comments: "ok"})
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("Review() error = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestDocumentService_ResubmitBumpsVersion(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestDocumentService()
	doc := createTestDocument(t, svc)
	advance(t, svc, doc, domain.StatusPendingReview)

	if _, err := svc.Review(ctx, testReviewer, doc.ID, &dto.ReviewRequest{Action: "reject", Comments: "redo"}); err != nil {
		t.Fatalf("Review() error = %v", err)
	}

	updated, err := svc.Submit(ctx, testAuthor, doc.ID)
	if err != nil {
		t.Fatalf("Submit() after rejection error = %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("Version = %d, want 2 after resubmission", updated.Version)
	}
	if updated.Status != domain.StatusPendingReview {
		t.Errorf("Status = %s, want pending_review", updated.Status)
	}
}

func TestDocumentService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("author edits draft", func(t *testing.T) {
		svc, _, _, _ := newTestDocumentService()
		doc := createTestDocument(t, svc)

		updated, err := svc.Update(ctx, testAuthor, doc.ID, &dto.UpdateDocumentRequest{Title: "  New Title  "})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.Title != "New Title" {
			t.Errorf("Title = %q, want trimmed %q", updated.Title, "New Title")
		}
		if updated.Description != "Q3 figures" {
			t.Errorf("Description = %q, must be unchanged", updated.Description)
		}
	})

	t.Run("locked while pending", func(t *testing.T) {
		svc, _, _, _ := newTestDocumentService()
		doc := createTestDocument(t, svc)
		advance(t, svc, doc, domain.StatusPendingReview)

		_, err := svc.Update(ctx, testAuthor, doc.ID, &dto.UpdateDocumentRequest{Title: "x"})
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("Update() error = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("non-author rejected", func(t *testing.T) {
		svc, _, _, _ := newTestDocumentService()
		doc := createTestDocument(t, svc)

		_, err := svc.Update(ctx, testReviewer, doc.ID, &dto.UpdateDocumentRequest{Title: "x"})
		if !errors.Is(err, ErrNotAuthor) {
			t.Errorf("Update() error = %v, want ErrNotAuthor", err)
		}
	})
}

func TestDocumentService_Stats(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestDocumentService()

	d1 := createTestDocument(t, svc)
	advance(t, svc, d1, domain.StatusApproved)
	d2 := createTestDocument(t, svc)
	advance(t, svc, d2, domain.StatusPendingReview)
	createTestDocument(t, svc)

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.Approved != 1 || stats.PendingReview != 1 || stats.Draft != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
