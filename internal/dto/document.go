package dto

import (
	"time"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
)

// CreateDocumentRequest carries the multipart form fields of an upload
type CreateDocumentRequest struct {
	Title       string `form:"title" binding:"required,max=200"`
	Description string `form:"description" binding:"max=2000"`
}

// UpdateDocumentRequest updates a document's metadata
type UpdateDocumentRequest struct {
	Title       string `json:"title" binding:"omitempty,max=200"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

// ReviewRequest represents a review decision. Comments are mandatory for
// approve and reject alike.
type ReviewRequest struct {
	Action   string `json:"action" binding:"required,oneof=approve reject"`
	Comments string `json:"comments" binding:"required,max=2000"`
}

// ListDocumentsQuery narrows document listings
type ListDocumentsQuery struct {
	Status      string `form:"status"`
	MyDocuments bool   `form:"my_documents"`
	Skip        int    `form:"skip,default=0" binding:"min=0"`
	Limit       int    `form:"limit,default=20" binding:"min=1,max=100"`
}

// DocumentResponse represents a document with the viewer's capability flags.
// Clients treat the flags as the only authority for offering actions.
type DocumentResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Version     int       `json:"version"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	Status      string    `json:"status"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CanEdit     bool      `json:"can_edit"`
	CanReview   bool      `json:"can_review"`
	CanApprove  bool      `json:"can_approve"`
	CanSubmit   bool      `json:"can_submit"`
}

// ToDocumentResponse converts a domain document for the given viewer
func ToDocumentResponse(doc *domain.Document, viewer *domain.User) DocumentResponse {
	caps := domain.ComputeCapabilities(doc, viewer)
	return DocumentResponse{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Version:     doc.Version,
		AuthorID:    doc.AuthorID,
		AuthorName:  doc.AuthorName,
		Status:      string(doc.Status),
		FileSize:    doc.FileSize,
		ContentType: doc.ContentType,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		CanEdit:     caps.CanEdit,
		CanReview:   caps.CanReview,
		CanApprove:  caps.CanApprove,
		CanSubmit:   doc.CanSubmit(viewer),
	}
}

// DocumentListResponse is a paginated document listing
type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Total     int                `json:"total"`
	Skip      int                `json:"skip"`
	Limit     int                `json:"limit"`
}

// HistoryEntryResponse represents one review history record
type HistoryEntryResponse struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	Action       string    `json:"action"`
	ReviewerID   string    `json:"reviewer_id"`
	ReviewerName string    `json:"reviewer_name"`
	Comments     string    `json:"comments,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToHistoryEntryResponse converts a domain history entry
func ToHistoryEntryResponse(entry *domain.ReviewHistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:           entry.ID,
		DocumentID:   entry.DocumentID,
		Action:       string(entry.Action),
		ReviewerID:   entry.ReviewerID,
		ReviewerName: entry.ReviewerName,
		Comments:     entry.Comments,
		CreatedAt:    entry.CreatedAt,
	}
}

// DocumentStatsResponse is the per-status document count summary
type DocumentStatsResponse struct {
	Total           int `json:"total"`
	Draft           int `json:"draft"`
	PendingReview   int `json:"pending_review"`
	PendingApproval int `json:"pending_approval"`
	Approved        int `json:"approved"`
	Rejected        int `json:"rejected"`
}
