package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
	"github.com/diegoferreirapinto/document-management-system/pkg/telemetry"
)

// ErrDocumentNotFound is returned when a document does not exist
var ErrDocumentNotFound = errors.New("document not found")

// ErrStatusConflict is returned when a status update lost a concurrent race
var ErrStatusConflict = errors.New("document status changed concurrently")

// PostgresDocumentRepository implements DocumentRepository using PostgreSQL with pgxpool
type PostgresDocumentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresDocumentRepository creates a new PostgresDocumentRepository
func NewPostgresDocumentRepository(pool *pgxpool.Pool) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{pool: pool}
}

// Create creates a new document record
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.document.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("document_id", doc.ID),
		attribute.String("author_id", doc.AuthorID),
	)

	query := `
		INSERT INTO documents (
			id, title, description, version, author_id, status,
			file_path, file_size, content_type, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		doc.ID,
		doc.Title,
		doc.Description,
		doc.Version,
		doc.AuthorID,
		string(doc.Status),
		doc.FilePath,
		doc.FileSize,
		doc.ContentType,
		doc.CreatedAt,
		doc.UpdatedAt,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create document: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a document by its ID, joining the author's name
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.document.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("document_id", id))

	query := `
		SELECT
			d.id, d.title, d.description, d.version, d.author_id, u.full_name,
			d.status, d.file_path, d.file_size, d.content_type, d.created_at, d.updated_at
		FROM documents d
		JOIN users u ON d.author_id = u.id
		WHERE d.id = $1
	`

	doc, err := scanDocument(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return doc, nil
}

// List retrieves documents matching the filter, newest first, with the total count
func (r *PostgresDocumentRepository) List(ctx context.Context, filter *DocumentFilter) ([]*domain.Document, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.document.list")
	defer span.End()

	where := ` WHERE 1=1`
	args := []any{}
	argn := 0

	if filter.Status != "" {
		argn++
		where += fmt.Sprintf(" AND d.status = $%d", argn)
		args = append(args, string(filter.Status))
	}
	if filter.AuthorID != "" {
		argn++
		where += fmt.Sprintf(" AND d.author_id = $%d", argn)
		args = append(args, filter.AuthorID)
	}

	countQuery := `SELECT COUNT(*) FROM documents d` + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	query := `
		SELECT
			d.id, d.title, d.description, d.version, d.author_id, u.full_name,
			d.status, d.file_path, d.file_size, d.content_type, d.created_at, d.updated_at
		FROM documents d
		JOIN users u ON d.author_id = u.id` + where +
		fmt.Sprintf(" ORDER BY d.updated_at DESC LIMIT $%d OFFSET $%d", argn+1, argn+2)
	args = append(args, filter.Limit, filter.Skip)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, 0, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("error iterating documents: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(docs)), attribute.Int("total", total))
	span.SetStatus(codes.Ok, "")
	return docs, total, nil
}

// Update updates a document's editable fields
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.document.update")
	defer span.End()

	span.SetAttributes(attribute.String("document_id", doc.ID))

	query := `
		UPDATE documents SET
			title = $2,
			description = $3,
			version = $4,
			file_path = $5,
			file_size = $6,
			content_type = $7,
			updated_at = $8
		WHERE id = $1
	`

	doc.UpdatedAt = time.Now()
	result, err := r.pool.Exec(ctx, query,
		doc.ID,
		doc.Title,
		doc.Description,
		doc.Version,
		doc.FilePath,
		doc.FileSize,
		doc.ContentType,
		doc.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update document: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrDocumentNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// UpdateStatus moves a document to doc.Status and appends the review history
// entry in the same transaction. The update is guarded on the status the
// transition was computed from, so concurrent reviewers cannot both win.
func (r *PostgresDocumentRepository) UpdateStatus(ctx context.Context, doc *domain.Document, previous domain.DocumentStatus, entry *domain.ReviewHistoryEntry) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.document.update_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("document_id", doc.ID),
		attribute.String("status", string(doc.Status)),
		attribute.String("action", string(entry.Action)),
	)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE documents SET status = $2, version = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`, doc.ID, string(doc.Status), doc.Version, doc.UpdatedAt, string(previous))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "status conflict")
		return ErrStatusConflict
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO review_history (id, document_id, action, reviewer_id, comments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.DocumentID, string(entry.Action), entry.ReviewerID, entry.Comments, entry.CreatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to append review history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit status update: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetHistory retrieves the review ledger of a document, oldest first
func (r *PostgresDocumentRepository) GetHistory(ctx context.Context, documentID string) ([]*domain.ReviewHistoryEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.document.get_history")
	defer span.End()

	span.SetAttributes(attribute.String("document_id", documentID))

	query := `
		SELECT h.id, h.document_id, h.action, h.reviewer_id, u.full_name, h.comments, h.created_at
		FROM review_history h
		JOIN users u ON h.reviewer_id = u.id
		WHERE h.document_id = $1
		ORDER BY h.created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, documentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get review history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ReviewHistoryEntry
	for rows.Next() {
		entry := &domain.ReviewHistoryEntry{}
		var action string
		if err := rows.Scan(
			&entry.ID,
			&entry.DocumentID,
			&action,
			&entry.ReviewerID,
			&entry.ReviewerName,
			&entry.Comments,
			&entry.CreatedAt,
		); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.Action = domain.ReviewHistoryAction(action)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating review history: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(entries)))
	span.SetStatus(codes.Ok, "")
	return entries, nil
}

// CountByStatus returns document counts per workflow status
func (r *PostgresDocumentRepository) CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.document.count_by_status")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to count documents by status: %w", err)
	}
	defer rows.Close()

	counts := map[domain.DocumentStatus]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[domain.DocumentStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return counts, nil
}

// scanDocument scans a row into a Document struct
func scanDocument(row pgx.Row) (*domain.Document, error) {
	doc := &domain.Document{}
	var status string
	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Description,
		&doc.Version,
		&doc.AuthorID,
		&doc.AuthorName,
		&status,
		&doc.FilePath,
		&doc.FileSize,
		&doc.ContentType,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatus(status)
	return doc, nil
}

// Ensure PostgresDocumentRepository implements DocumentRepository
var _ DocumentRepository = (*PostgresDocumentRepository)(nil)
