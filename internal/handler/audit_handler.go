package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/diegoferreirapinto/document-management-system/internal/dto"
	"github.com/diegoferreirapinto/document-management-system/internal/service"
	"github.com/diegoferreirapinto/document-management-system/pkg/logger"
	"github.com/diegoferreirapinto/document-management-system/pkg/response"
)

// AuditHandler handles audit log HTTP requests
type AuditHandler struct {
	auditService service.AuditService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List lists audit logs with pagination and optional filters
// GET /api/v1/audit/logs
func (h *AuditHandler) List(c *gin.Context) {
	var query dto.ListAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	logs, total, err := h.auditService.List(c.Request.Context(), &query)
	if err != nil {
		if _, ok := err.(*time.ParseError); ok {
			response.BadRequest(c, "date_from and date_to must be RFC 3339 timestamps")
			return
		}
		response.InternalError(c, err)
		return
	}

	out := make([]dto.AuditLogResponse, 0, len(logs))
	for _, log := range logs {
		out = append(out, dto.ToAuditLogResponse(log))
	}

	response.Success(c, dto.AuditLogListResponse{
		Logs:  out,
		Total: total,
		Skip:  query.Skip,
		Limit: query.Limit,
	})
}

// Export streams audit logs matching the filters as a CSV download
// GET /api/v1/audit/export
func (h *AuditHandler) Export(c *gin.Context) {
	var query dto.ListAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	filename := fmt.Sprintf("audit_logs_%d.csv", time.Now().UnixMilli())
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := h.auditService.ExportCSV(c.Request.Context(), &query, c.Writer); err != nil {
		// headers are already written, nothing left to do but log
		logger.Get().ErrorContext(c.Request.Context(), "audit export failed", "error", err)
	}
}
