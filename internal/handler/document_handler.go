package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
	"github.com/diegoferreirapinto/document-management-system/internal/dto"
	"github.com/diegoferreirapinto/document-management-system/internal/middleware"
	"github.com/diegoferreirapinto/document-management-system/internal/repository"
	"github.com/diegoferreirapinto/document-management-system/internal/service"
	"github.com/diegoferreirapinto/document-management-system/pkg/response"
)

// pdfMagic is the byte signature every PDF file starts with
var pdfMagic = []byte("%PDF-")

// DocumentHandler handles document workflow HTTP requests
type DocumentHandler struct {
	documentService service.DocumentService
	maxUploadSize   int64
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documentService service.DocumentService, maxUploadSize int64) *DocumentHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 10 * 1024 * 1024
	}
	return &DocumentHandler{
		documentService: documentService,
		maxUploadSize:   maxUploadSize,
	}
}

// Upload creates a draft document from a multipart PDF upload
// POST /api/v1/documents/upload
func (h *DocumentHandler) Upload(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req dto.CreateDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	if fileHeader.Size > h.maxUploadSize {
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("File exceeds the maximum size of %d bytes", h.maxUploadSize), "")
		return
	}

	if ct := fileHeader.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" {
		response.Error(c, http.StatusUnsupportedMediaType, "INVALID_FILE_TYPE", "Only PDF files are allowed", "")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer file.Close()

	// the declared content type is client-controlled; verify the signature
	magic := make([]byte, len(pdfMagic))
	n, _ := file.Read(magic)
	if n < len(pdfMagic) || string(magic[:n]) != string(pdfMagic) {
		response.Error(c, http.StatusUnsupportedMediaType, "INVALID_FILE_TYPE", "Only PDF files are allowed", "")
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		response.InternalError(c, err)
		return
	}

	doc, err := h.documentService.Create(c.Request.Context(), user, &req, file, fileHeader.Size, "application/pdf")
	if err != nil {
		h.writeWorkflowError(c, err)
		return
	}

	response.Created(c, dto.ToDocumentResponse(doc, user))
}

// List lists documents with pagination, optionally filtered by status or
// restricted to the viewer's own documents
// GET /api/v1/documents
func (h *DocumentHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var query dto.ListDocumentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if query.Status != "" && !domain.DocumentStatus(query.Status).Valid() {
		response.BadRequest(c, "unknown status: "+query.Status)
		return
	}

	docs, total, err := h.documentService.List(c.Request.Context(), user, &query)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	out := make([]dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, dto.ToDocumentResponse(doc, user))
	}

	response.Success(c, dto.DocumentListResponse{
		Documents: out,
		Total:     total,
		Skip:      query.Skip,
		Limit:     query.Limit,
	})
}

// Get returns one document with the viewer's capability flags
// GET /api/v1/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	doc, err := h.documentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			response.NotFound(c, "Document not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Success(c, dto.ToDocumentResponse(doc, user))
}

// Update updates a document's metadata
// PATCH /api/v1/documents/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	doc, err := h.documentService.Update(c.Request.Context(), user, c.Param("id"), &req)
	if err != nil {
		h.writeWorkflowError(c, err)
		return
	}

	response.Success(c, dto.ToDocumentResponse(doc, user))
}

// Submit moves a draft or rejected document into review
// POST /api/v1/documents/:id/submit
func (h *DocumentHandler) Submit(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	doc, err := h.documentService.Submit(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.writeWorkflowError(c, err)
		return
	}

	response.Success(c, dto.ToDocumentResponse(doc, user))
}

// Review applies an approve or reject decision
// POST /api/v1/documents/:id/review
func (h *DocumentHandler) Review(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "action must be approve or reject")
		return
	}

	doc, err := h.documentService.Review(c.Request.Context(), user, c.Param("id"), &req)
	if err != nil {
		h.writeWorkflowError(c, err)
		return
	}

	response.Success(c, dto.ToDocumentResponse(doc, user))
}

// History returns the review ledger of a document
// GET /api/v1/documents/:id/history
func (h *DocumentHandler) History(c *gin.Context) {
	entries, err := h.documentService.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			response.NotFound(c, "Document not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	out := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.ToHistoryEntryResponse(entry))
	}

	response.Success(c, out)
}

// Download streams the stored PDF file
// GET /api/v1/documents/:id/download
func (h *DocumentHandler) Download(c *gin.Context) {
	doc, file, err := h.documentService.OpenFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			response.NotFound(c, "Document not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	defer file.Close()

	filename := strings.ReplaceAll(doc.Title, `"`, "") + ".pdf"
	c.DataFromReader(http.StatusOK, doc.FileSize, "application/pdf", file, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
	})
}

// Stats returns per-status document counts
// GET /api/v1/documents/stats
func (h *DocumentHandler) Stats(c *gin.Context) {
	stats, err := h.documentService.Stats(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, stats)
}

// writeWorkflowError maps workflow service errors to HTTP responses
func (h *DocumentHandler) writeWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound):
		response.NotFound(c, "Document not found")
	case errors.Is(err, service.ErrNotAuthor):
		response.Forbidden(c, "Only the document author may perform this action")
	case errors.Is(err, service.ErrActionForbidden):
		response.Forbidden(c, "You cannot perform this action at the document's current stage")
	case errors.Is(err, service.ErrCommentsRequired):
		response.BadRequest(c, "Comments are required when reviewing a document")
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Conflict(c, "The document's current status does not allow this action")
	case errors.Is(err, repository.ErrStatusConflict):
		response.Conflict(c, "The document changed while processing, reload and retry")
	default:
		response.InternalError(c, err)
	}
}
