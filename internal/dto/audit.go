package dto

import (
	"time"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
)

// ListAuditLogsQuery narrows audit log listings
type ListAuditLogsQuery struct {
	Action   string `form:"action"`
	UserID   string `form:"user_id"`
	DateFrom string `form:"date_from"` // RFC 3339
	DateTo   string `form:"date_to"`   // RFC 3339
	Skip     int    `form:"skip,default=0" binding:"min=0"`
	Limit    int    `form:"limit,default=10" binding:"min=1,max=100"`
}

// AuditLogResponse represents one audit log record
type AuditLogResponse struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Action         string    `json:"action"`
	EntityType     string    `json:"entity_type"`
	UserID         string    `json:"user_id,omitempty"`
	Username       string    `json:"username,omitempty"`
	RequestPath    string    `json:"request_path"`
	IPAddress      string    `json:"ip_address"`
	ResponseStatus int       `json:"response_status"`
}

// ToAuditLogResponse converts a domain audit log
func ToAuditLogResponse(log *domain.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:             log.ID,
		Timestamp:      log.Timestamp,
		Action:         log.Action,
		EntityType:     log.EntityType,
		UserID:         log.UserID,
		Username:       log.Username,
		RequestPath:    log.RequestPath,
		IPAddress:      log.IPAddress,
		ResponseStatus: log.ResponseStatus,
	}
}

// AuditLogListResponse is a paginated audit log listing
type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int                `json:"total"`
	Skip  int                `json:"skip"`
	Limit int                `json:"limit"`
}
