package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
	"github.com/diegoferreirapinto/document-management-system/internal/service"
	"github.com/diegoferreirapinto/document-management-system/pkg/logger"
)

// AuditTrail records every API request as an audit log entry after the
// response is written. Recording happens off the request path so a slow or
// failing audit store never delays responses.
func AuditTrail(auditService service.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		entry := &domain.AuditLog{
			Timestamp:      time.Now(),
			Action:         c.Request.Method,
			EntityType:     entityTypeFromPath(c.FullPath()),
			RequestPath:    c.Request.URL.Path,
			IPAddress:      c.ClientIP(),
			ResponseStatus: c.Writer.Status(),
		}
		if v, ok := c.Get(ContextUserIDKey); ok {
			entry.UserID, _ = v.(string)
		}
		if v, ok := c.Get(ContextUsernameKey); ok {
			entry.Username, _ = v.(string)
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := auditService.Record(ctx, entry); err != nil {
				logger.Get().Error("failed to record audit log",
					"path", entry.RequestPath, "error", err)
			}
		}()
	}
}

// entityTypeFromPath derives the audited entity from the route, e.g.
// /api/v1/documents/:id/submit -> "documents"
func entityTypeFromPath(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, p := range parts {
		if p == "v1" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}
