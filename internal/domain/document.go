package domain

import (
	"time"
)

// DocumentStatus is the workflow state of a document
type DocumentStatus string

const (
	StatusDraft           DocumentStatus = "draft"
	StatusPendingReview   DocumentStatus = "pending_review"
	StatusPendingApproval DocumentStatus = "pending_approval"
	StatusApproved        DocumentStatus = "approved"
	StatusRejected        DocumentStatus = "rejected"
)

// TransitionAction is a workflow action requested on a document
type TransitionAction string

const (
	ActionSubmit  TransitionAction = "submit"
	ActionApprove TransitionAction = "approve"
	ActionReject  TransitionAction = "reject"
)

// ReviewHistoryAction is the action recorded in the review history ledger
type ReviewHistoryAction string

const (
	HistorySubmitted ReviewHistoryAction = "submitted"
	HistoryApproved  ReviewHistoryAction = "approved"
	HistoryRejected  ReviewHistoryAction = "rejected"
)

// transitions is the workflow table: (current status, action) -> next status.
// Anything absent is an invalid transition. Approved is terminal.
var transitions = map[DocumentStatus]map[TransitionAction]DocumentStatus{
	StatusDraft: {
		ActionSubmit: StatusPendingReview,
	},
	StatusRejected: {
		ActionSubmit: StatusPendingReview,
	},
	StatusPendingReview: {
		ActionApprove: StatusPendingApproval,
		ActionReject:  StatusRejected,
	},
	StatusPendingApproval: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
	},
}

// NextStatus validates a workflow transition and returns the resulting status
func NextStatus(current DocumentStatus, action TransitionAction) (DocumentStatus, error) {
	actions, ok := transitions[current]
	if !ok {
		return "", ErrInvalidTransition
	}
	next, ok := actions[action]
	if !ok {
		return "", ErrInvalidTransition
	}
	return next, nil
}

// IsResubmittable reports whether an author may submit from this status
func (s DocumentStatus) IsResubmittable() bool {
	return s == StatusDraft || s == StatusRejected
}

// IsTerminal reports whether no further transition exists from this status
func (s DocumentStatus) IsTerminal() bool {
	_, ok := transitions[s]
	return !ok
}

// Valid reports whether the value is a known status
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusPendingApproval, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Document represents a managed document
type Document struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Version     int            `json:"version"`
	AuthorID    string         `json:"author_id"`
	AuthorName  string         `json:"author_name"`
	Status      DocumentStatus `json:"status"`
	FilePath    string         `json:"-"`
	FileSize    int64          `json:"file_size"`
	ContentType string         `json:"content_type"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Capabilities are the per-viewer action flags computed server-side.
// Clients trust these as the sole authority for offering actions.
type Capabilities struct {
	CanEdit    bool `json:"can_edit"`
	CanReview  bool `json:"can_review"`
	CanApprove bool `json:"can_approve"`
}

// ComputeCapabilities derives the viewer's action flags for a document
func ComputeCapabilities(doc *Document, viewer *User) Capabilities {
	return Capabilities{
		CanEdit:    doc.AuthorID == viewer.ID && doc.Status.IsResubmittable(),
		CanReview:  doc.Status == StatusPendingReview && viewer.HasAnyRole(RoleReviewer, RoleAdmin),
		CanApprove: doc.Status == StatusPendingApproval && viewer.HasAnyRole(RoleApprover, RoleAdmin),
	}
}

// CanSubmit reports whether the viewer may submit this document for review
func (d *Document) CanSubmit(viewer *User) bool {
	return d.AuthorID == viewer.ID && d.Status.IsResubmittable()
}

// ReviewHistoryEntry is one immutable record in a document's review ledger
type ReviewHistoryEntry struct {
	ID           string              `json:"id"`
	DocumentID   string              `json:"document_id"`
	Action       ReviewHistoryAction `json:"action"`
	ReviewerID   string              `json:"reviewer_id"`
	ReviewerName string              `json:"reviewer_name"`
	Comments     string              `json:"comments,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// DocumentEventType identifies a published document lifecycle event
type DocumentEventType string

const (
	DocumentEventCreated   DocumentEventType = "document.created"
	DocumentEventSubmitted DocumentEventType = "document.submitted"
	DocumentEventApproved  DocumentEventType = "document.approved"
	DocumentEventRejected  DocumentEventType = "document.rejected"
)

// DocumentEvent is the payload published on workflow transitions
type DocumentEvent struct {
	EventID    string            `json:"event_id"`
	EventType  DocumentEventType `json:"event_type"`
	DocumentID string            `json:"document_id"`
	Status     DocumentStatus    `json:"status"`
	Version    int               `json:"version"`
	ActorID    string            `json:"actor_id"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Key returns the partition key for the event
func (e *DocumentEvent) Key() string {
	return e.DocumentID
}
