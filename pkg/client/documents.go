package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MaxUploadSize is the server's upload ceiling; files at exactly this size
// are accepted, one byte more is rejected before any request is sent
const MaxUploadSize = 10 * 1024 * 1024

var pdfMagic = []byte("%PDF-")

// Upload pre-flight errors, surfaced before any HTTP call is made.
// Messages match what the product shows end users.
var (
	ErrNotPDF          = errors.New("Apenas arquivos PDF são permitidos")
	ErrFileTooLarge    = errors.New("O arquivo deve ter no máximo 10MB")
	ErrCommentRequired = errors.New("Por favor, adicione um comentário")
)

// Document is a document as returned by the service, including the
// server-computed capability flags. The flags are the only authority the
// client consults when deciding which actions to offer.
type Document struct {
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

// DocumentList is a paginated listing
type DocumentList struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
	Skip      int        `json:"skip"`
	Limit     int        `json:"limit"`
}

// HistoryEntry is one review history record, oldest-first in listings
type HistoryEntry struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	Action       string    `json:"action"`
	ReviewerID   string    `json:"reviewer_id"`
	ReviewerName string    `json:"reviewer_name"`
	Comments     string    `json:"comments"`
	CreatedAt    time.Time `json:"created_at"`
}

// DocumentStats is the per-status count summary backing dashboards
type DocumentStats struct {
	Total           int `json:"total"`
	Draft           int `json:"draft"`
	PendingReview   int `json:"pending_review"`
	PendingApproval int `json:"pending_approval"`
	Approved        int `json:"approved"`
	Rejected        int `json:"rejected"`
}

// ListOptions narrows a document listing
type ListOptions struct {
	Status string
	// MyDocuments restricts the listing to documents authored by the
	// session user
	MyDocuments bool
	Skip        int
	Limit       int
}

// ListDocuments fetches documents visible to the session user
func (c *Client) ListDocuments(ctx context.Context, opts *ListOptions) (*DocumentList, error) {
	path := "/api/v1/documents"
	if opts != nil {
		q := url.Values{}
		if opts.Status != "" {
			q.Set("status", opts.Status)
		}
		if opts.MyDocuments {
			q.Set("my_documents", "true")
		}
		if opts.Skip > 0 {
			q.Set("skip", strconv.Itoa(opts.Skip))
		}
		if opts.Limit > 0 {
			q.Set("limit", strconv.Itoa(opts.Limit))
		}
		if len(q) > 0 {
			path += "?" + q.Encode()
		}
	}

	var list DocumentList
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetDocument fetches a single document with the viewer's capability flags
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/documents/"+id, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UploadProgress reports bytes sent out of the total request body.
// It is called from the uploading goroutine; keep it fast.
type UploadProgress func(sent, total int64)

// UploadRequest describes a document upload
type UploadRequest struct {
	Title       string
	Description string
	Filename    string
	File        io.Reader
	// Progress, when set, is invoked as the request body is consumed
	Progress UploadProgress
}

// progressReader counts bytes as the transport reads the request body
type progressReader struct {
	r        io.Reader
	total    int64
	sent     int64
	progress UploadProgress
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		if p.progress != nil {
			p.progress(p.sent, p.total)
		}
	}
	return n, err
}

// UploadDocument creates a new draft from a PDF file. The file is validated
// locally before any request is sent: it must carry the PDF signature and
// must not exceed MaxUploadSize (a file at exactly the limit is fine).
func (c *Client) UploadDocument(ctx context.Context, req *UploadRequest) (*Document, error) {
	data, err := io.ReadAll(req.File)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, ErrNotPDF
	}
	if int64(len(data)) > MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if err := mw.WriteField("title", req.Title); err != nil {
		return nil, err
	}
	if req.Description != "" {
		if err := mw.WriteField("description", req.Description); err != nil {
			return nil, err
		}
	}

	filename := req.Filename
	if filename == "" {
		filename = "document.pdf"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	reader := &progressReader{r: body, total: int64(body.Len()), progress: req.Progress}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/documents/upload", reader)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.ContentLength = reader.total

	var doc Document
	if err := c.send(httpReq, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateDocument changes a document's title and/or description.
// Empty fields are left untouched server-side.
func (c *Client) UpdateDocument(ctx context.Context, id, title, description string) (*Document, error) {
	body := map[string]string{"title": title, "description": description}
	var doc Document
	if err := c.doJSON(ctx, http.MethodPatch, "/api/v1/documents/"+id, body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SubmitDocument sends a draft or rejected document into review
func (c *Client) SubmitDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := c.doJSON(ctx, http.MethodPut, "/api/v1/documents/"+id+"/submit", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ApproveDocument approves a document under review. A non-blank comment is
// mandatory and validated locally before any request is sent.
func (c *Client) ApproveDocument(ctx context.Context, id, comments string) (*Document, error) {
	return c.review(ctx, id, "approve", comments)
}

// RejectDocument rejects a document under review, sending it back to its
// author. A non-blank comment is mandatory, as for ApproveDocument.
func (c *Client) RejectDocument(ctx context.Context, id, comments string) (*Document, error) {
	return c.review(ctx, id, "reject", comments)
}

func (c *Client) review(ctx context.Context, id, action, comments string) (*Document, error) {
	comments = strings.TrimSpace(comments)
	if comments == "" {
		return nil, ErrCommentRequired
	}

	body := map[string]string{"action": action, "comments": comments}
	var doc Document
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/documents/"+id+"/review", body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DocumentHistory fetches a document's review trail, oldest entry first
func (c *Client) DocumentHistory(ctx context.Context, id string) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/documents/"+id+"/history", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// DownloadDocument streams a document's PDF content. The caller owns the
// returned ReadCloser.
func (c *Client) DownloadDocument(ctx context.Context, id string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/documents/"+id+"/download", nil)
	if err != nil {
		return nil, err
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeEnvelope(resp, nil)
	}
	return resp.Body, nil
}

// DocumentStats fetches the per-status counts for the dashboard
func (c *Client) DocumentStats(ctx context.Context) (*DocumentStats, error) {
	var stats DocumentStats
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/documents/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
