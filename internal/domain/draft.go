package domain

import (
	"fmt"
	"time"
)

// DraftStatus represents the review status of an RFQ draft.
type DraftStatus string

const (
	DraftStatusDraft    DraftStatus = "draft"
	DraftStatusReview   DraftStatus = "review"
	DraftStatusApproved DraftStatus = "approved"
	DraftStatusRejected DraftStatus = "rejected"
	DraftStatusSent     DraftStatus = "sent"
)

// DraftState tracks where a draft sits in its editing lifecycle:
// none -> drafted -> edited* -> (review -> approved | rejected).
type DraftState string

const (
	DraftStateNone    DraftState = "none"
	DraftStateDrafted DraftState = "drafted"
	DraftStateEdited  DraftState = "edited"
)

// RFQDraft is a user's in-progress RFQ document. Owned by the session
// that created it; mutated only via drafting engine calls or manual edits.
type RFQDraft struct {
	ID        string
	Title     string
	Body      string
	Status    DraftStatus
	State     DraftState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRFQDraft creates a freshly generated draft.
func NewRFQDraft(id, title, body string, now time.Time) *RFQDraft {
	return &RFQDraft{
		ID:        id,
		Title:     title,
		Body:      body,
		Status:    DraftStatusDraft,
		State:     DraftStateDrafted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateRFQDraft validates an RFQDraft instance.
func ValidateRFQDraft(d *RFQDraft) error {
	if d == nil {
		return fmt.Errorf("draft cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("draft ID is required")
	}
	if d.Title == "" {
		return fmt.Errorf("draft Title is required")
	}
	if d.Body == "" {
		return fmt.Errorf("draft Body is required")
	}
	if !IsValidDraftStatus(d.Status) {
		return fmt.Errorf("draft Status is invalid: %s", d.Status)
	}
	return nil
}

// IsValidDraftStatus checks if a DraftStatus is one of the known values.
func IsValidDraftStatus(s DraftStatus) bool {
	switch s {
	case DraftStatusDraft, DraftStatusReview, DraftStatusApproved, DraftStatusRejected, DraftStatusSent:
		return true
	}
	return false
}

// CanTransitionStatus reports whether a status change is allowed:
// draft -> review -> (approved | rejected) -> sent (approved only).
func CanTransitionStatus(from, to DraftStatus) bool {
	switch from {
	case DraftStatusDraft:
		return to == DraftStatusReview
	case DraftStatusReview:
		return to == DraftStatusApproved || to == DraftStatusRejected || to == DraftStatusDraft
	case DraftStatusApproved:
		return to == DraftStatusSent
	case DraftStatusRejected:
		return to == DraftStatusDraft
	}
	return false
}

// CanApplyEdit reports whether the draft's lifecycle permits an edit:
// a body must exist and the draft must still hold draft status. Drafts
// in review, approved, rejected or sent are frozen until moved back.
func (d *RFQDraft) CanApplyEdit() bool {
	if d.Status != DraftStatusDraft {
		return false
	}
	return d.State == DraftStateDrafted || d.State == DraftStateEdited
}

// MarkEdited records a successful apply_edit transition.
func (d *RFQDraft) MarkEdited(body string, now time.Time) {
	d.Body = body
	d.State = DraftStateEdited
	d.UpdatedAt = now
}
