package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
)

// PostgresAuditRepository implements AuditLogRepository using PostgreSQL
type PostgresAuditRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditRepository creates a new PostgresAuditRepository
func NewPostgresAuditRepository(pool *pgxpool.Pool) *PostgresAuditRepository {
	return &PostgresAuditRepository{pool: pool}
}

// Create inserts an audit log row
func (r *PostgresAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, timestamp, action, entity_type, user_id, username, request_path, ip_address, response_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		log.ID,
		log.Timestamp,
		log.Action,
		log.EntityType,
		nullString(log.UserID),
		log.Username,
		log.RequestPath,
		log.IPAddress,
		log.ResponseStatus,
	)
	return err
}

// List retrieves audit logs matching the filter, newest first, with the total count
func (r *PostgresAuditRepository) List(ctx context.Context, filter *domain.AuditLogFilter) ([]*domain.AuditLog, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argn := 0

	if filter.Action != "" {
		argn++
		where += fmt.Sprintf(" AND action = $%d", argn)
		args = append(args, filter.Action)
	}
	if filter.UserID != "" {
		argn++
		where += fmt.Sprintf(" AND user_id = $%d", argn)
		args = append(args, filter.UserID)
	}
	if filter.DateFrom != nil {
		argn++
		where += fmt.Sprintf(" AND timestamp >= $%d", argn)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		argn++
		where += fmt.Sprintf(" AND timestamp <= $%d", argn)
		args = append(args, *filter.DateTo)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query := `
		SELECT id, timestamp, action, entity_type, user_id, username, request_path, ip_address, response_status
		FROM audit_logs` + where +
		fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d OFFSET $%d", argn+1, argn+2)
	args = append(args, filter.Limit, filter.Skip)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		log := &domain.AuditLog{}
		var userID *string
		if err := rows.Scan(
			&log.ID,
			&log.Timestamp,
			&log.Action,
			&log.EntityType,
			&userID,
			&log.Username,
			&log.RequestPath,
			&log.IPAddress,
			&log.ResponseStatus,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if userID != nil {
			log.UserID = *userID
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return logs, total, nil
}

// Helper function to convert empty string to nil pointer
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresAuditRepository implements AuditLogRepository
var _ AuditLogRepository = (*PostgresAuditRepository)(nil)
