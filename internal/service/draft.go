package service

import (
	"context"
	"strings"

	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/pagination"
	"github.com/sourcingworks/rfqsmith/internal/telemetry"
)

// DraftRepositoryInterface defines the repository interface for draft persistence
type DraftRepositoryInterface interface {
	Create(ctx context.Context, d *domain.RFQDraft) error
	GetByID(ctx context.Context, id string) (*domain.RFQDraft, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DraftPageResult, error)
	Update(ctx context.Context, d *domain.RFQDraft) error
	Delete(ctx context.Context, id string) error
}

type DraftPageResult struct {
	Items      []*domain.RFQDraft
	NextCursor string
	HasMore    bool
}

// DraftService owns the draft lifecycle: generation, edits, review
// status transitions, deletion. The structural guarantees come from
// DraftingService; this layer enforces the lifecycle state machine
// and persists accepted bodies.
type DraftService struct {
	draftRepo DraftRepositoryInterface
	drafting  *DraftingService
	uuidGen   UUIDGenerator
}

// NewDraftService creates a new DraftService instance
func NewDraftService(draftRepo DraftRepositoryInterface, drafting *DraftingService) *DraftService {
	return &DraftService{
		draftRepo: draftRepo,
		drafting:  drafting,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewDraftServiceWithUUIDGen creates a DraftService with a custom UUID generator (for testing)
func NewDraftServiceWithUUIDGen(draftRepo DraftRepositoryInterface, drafting *DraftingService, uuidGen UUIDGenerator) *DraftService {
	return &DraftService{
		draftRepo: draftRepo,
		drafting:  drafting,
		uuidGen:   uuidGen,
	}
}

const maxTitleChars = 80

// CreateDraft generates a new draft from the requirement and persists
// it. The returned DraftResult reports whether generation fell back to
// the skeleton.
func (s *DraftService) CreateDraft(ctx context.Context, requirement string, rctx RetrievedContext) (*domain.RFQDraft, *DraftResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DraftService.CreateDraft", telemetry.SpanAttributes{
		Operation: "create_draft",
	})
	defer span.End()

	result, err := s.drafting.DraftNew(ctx, requirement, rctx)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}

	draft := domain.NewRFQDraft(s.uuidGen.NewString(), titleFromRequirement(requirement), result.Body, nowUTC())
	if err := s.draftRepo.Create(ctx, draft); err != nil {
		span.SetError(err)
		return nil, nil, err
	}
	return draft, result, nil
}

// Edit applies an instruction to an existing draft and returns the
// updated draft, the drafting outcome, and an impact summary for the
// change. A fallback edit leaves the stored draft untouched.
func (s *DraftService) Edit(ctx context.Context, id, instruction string, rctx RetrievedContext) (*domain.RFQDraft, *DraftResult, string, error) {
	ctx, span := telemetry.StartSpan(ctx, "DraftService.Edit", telemetry.SpanAttributes{
		DraftID:   id,
		Operation: "edit",
	})
	defer span.End()

	draft, err := s.draftRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, "", err
	}
	if !draft.CanApplyEdit() {
		return nil, nil, "", domain.ErrDraftNotEditable
	}

	oldBody := draft.Body
	result, err := s.drafting.ApplyEdit(ctx, oldBody, instruction, rctx)
	if err != nil {
		span.SetError(err)
		return nil, nil, "", err
	}

	if result.Fallback || !result.Changed {
		return draft, result, "", nil
	}

	impact, err := s.drafting.ImpactAnalysis(ctx, oldBody, result.Body)
	if err != nil {
		// The edit itself succeeded; a missing summary is not fatal.
		telemetry.CaptureError(ctx, err)
		impact = ""
	}

	draft.MarkEdited(result.Body, nowUTC())
	if err := s.draftRepo.Update(ctx, draft); err != nil {
		span.SetError(err)
		return nil, nil, "", err
	}
	return draft, result, impact, nil
}

// GetByID returns one draft.
func (s *DraftService) GetByID(ctx context.Context, id string) (*domain.RFQDraft, error) {
	return s.draftRepo.GetByID(ctx, id)
}

// List returns a page of drafts, most recently updated first.
func (s *DraftService) List(ctx context.Context, input ListInput) (*DraftPageResult, error) {
	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.draftRepo.ListWithCursor(ctx, cursor, input.Limit)
}

// UpdateStatus moves a draft through the review workflow, rejecting
// transitions the lifecycle does not allow.
func (s *DraftService) UpdateStatus(ctx context.Context, id string, status domain.DraftStatus) (*domain.RFQDraft, error) {
	ctx, span := telemetry.StartSpan(ctx, "DraftService.UpdateStatus", telemetry.SpanAttributes{
		DraftID:   id,
		Operation: "update_status",
	})
	defer span.End()

	if !domain.IsValidDraftStatus(status) {
		return nil, domain.ErrInvalidDraftStatus
	}

	draft, err := s.draftRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionStatus(draft.Status, status) {
		return nil, domain.ErrInvalidStatusChange
	}

	draft.Status = status
	if err := s.draftRepo.Update(ctx, draft); err != nil {
		span.SetError(err)
		return nil, err
	}
	return draft, nil
}

// Delete removes a draft.
func (s *DraftService) Delete(ctx context.Context, id string) error {
	return s.draftRepo.Delete(ctx, id)
}

func titleFromRequirement(requirement string) string {
	title := strings.Join(strings.Fields(requirement), " ")
	runes := []rune(title)
	if len(runes) > maxTitleChars {
		title = strings.TrimSpace(string(runes[:maxTitleChars]))
	}
	if title == "" {
		title = "Untitled RFQ"
	}
	return "RFQ: " + title
}
