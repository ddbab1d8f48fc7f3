package domain

import "time"

// AuditLog is one recorded API request
type AuditLog struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Action         string    `json:"action"` // HTTP method
	EntityType     string    `json:"entity_type"`
	UserID         string    `json:"user_id,omitempty"`
	Username       string    `json:"username,omitempty"`
	RequestPath    string    `json:"request_path"`
	IPAddress      string    `json:"ip_address"`
	ResponseStatus int       `json:"response_status"`
}

// AuditLogFilter narrows audit log queries
type AuditLogFilter struct {
	Action   string
	UserID   string
	DateFrom *time.Time
	DateTo   *time.Time
	Skip     int
	Limit    int
}
