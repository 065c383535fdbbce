package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sourcingworks/rfqsmith/internal/api"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/service"
)

// DraftComposer generates and revises drafts with fresh retrieval context.
type DraftComposer interface {
	ComposeDraft(ctx context.Context, requirement string) (*domain.RFQDraft, *service.DraftResult, []domain.DocumentRef, error)
	ComposeEdit(ctx context.Context, draftID, instruction string) (*domain.RFQDraft, *service.DraftResult, string, error)
}

type DraftService interface {
	GetByID(ctx context.Context, id string) (*domain.RFQDraft, error)
	List(ctx context.Context, input service.ListInput) (*service.DraftPageResult, error)
	UpdateStatus(ctx context.Context, id string, status domain.DraftStatus) (*domain.RFQDraft, error)
	Delete(ctx context.Context, id string) error
}

type ExportService interface {
	Export(ctx context.Context, draftID string) (*service.ExportBundle, error)
}

type DraftHandler struct {
	composer DraftComposer
	drafts   DraftService
	export   ExportService
}

func NewDraftHandler(composer DraftComposer, drafts DraftService, export ExportService) *DraftHandler {
	return &DraftHandler{composer: composer, drafts: drafts, export: export}
}

type DraftResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Status    string `json:"status"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func draftToResponse(d *domain.RFQDraft) *DraftResponse {
	return &DraftResponse{
		ID:        d.ID,
		Title:     d.Title,
		Body:      d.Body,
		Status:    string(d.Status),
		State:     string(d.State),
		CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

type CitationResponse struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Score      float32 `json:"score"`
}

func citationsToResponse(refs []domain.DocumentRef) []*CitationResponse {
	out := make([]*CitationResponse, len(refs))
	for i, ref := range refs {
		out[i] = &CitationResponse{
			DocumentID: ref.DocumentID,
			Filename:   ref.Filename,
			Score:      ref.Score,
		}
	}
	return out
}

type CreateDraftRequest struct {
	Requirement string `json:"requirement"`
}

type CreateDraftResponse struct {
	Draft     *DraftResponse      `json:"draft"`
	Fallback  bool                `json:"fallback"`
	Reason    string              `json:"reason,omitempty"`
	Citations []*CitationResponse `json:"citations,omitempty"`
}

func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Requirement == "" {
		api.Error(w, http.StatusBadRequest, "requirement is required")
		return
	}

	draft, result, citations, err := h.composer.ComposeDraft(r.Context(), req.Requirement)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, CreateDraftResponse{
		Draft:     draftToResponse(draft),
		Fallback:  result.Fallback,
		Reason:    result.Reason,
		Citations: citationsToResponse(citations),
	})
}

type EditDraftRequest struct {
	Instruction string `json:"instruction"`
}

type EditDraftResponse struct {
	Draft    *DraftResponse `json:"draft"`
	Changed  bool           `json:"changed"`
	Fallback bool           `json:"fallback"`
	Reason   string         `json:"reason,omitempty"`
	Impact   string         `json:"impact,omitempty"`
}

func (h *DraftHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req EditDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Instruction == "" {
		api.Error(w, http.StatusBadRequest, "instruction is required")
		return
	}

	draft, result, impact, err := h.composer.ComposeEdit(r.Context(), id, req.Instruction)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, EditDraftResponse{
		Draft:    draftToResponse(draft),
		Changed:  result.Changed,
		Fallback: result.Fallback,
		Reason:   result.Reason,
		Impact:   impact,
	})
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	draft, err := h.drafts.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, draftToResponse(draft))
}

type DraftListResponse struct {
	Items   []*DraftResponse `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

func (h *DraftHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.drafts.List(r.Context(), service.ListInput{Cursor: cursor, Limit: limit})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DraftResponse, len(page.Items))
	for i, d := range page.Items {
		responses[i] = draftToResponse(d)
	}

	api.Success(w, http.StatusOK, DraftListResponse{
		Items:   responses,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (h *DraftHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		api.Error(w, http.StatusBadRequest, "status is required")
		return
	}

	draft, err := h.drafts.UpdateStatus(r.Context(), id, domain.DraftStatus(req.Status))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, draftToResponse(draft))
}

func (h *DraftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.drafts.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

type ExportImageResponse struct {
	ID     int64  `json:"id"`
	Format string `json:"format"`
	Data   []byte `json:"data"`
}

type ExportResponse struct {
	DraftID string                 `json:"draft_id"`
	Title   string                 `json:"title"`
	Body    string                 `json:"body"`
	Images  []*ExportImageResponse `json:"images,omitempty"`
}

// Export returns the render-ready bundle: body plus base64 image bytes.
func (h *DraftHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	bundle, err := h.export.Export(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	images := make([]*ExportImageResponse, len(bundle.Images))
	for i, img := range bundle.Images {
		images[i] = &ExportImageResponse{
			ID:     img.ID,
			Format: img.Format,
			Data:   img.Data,
		}
	}

	api.Success(w, http.StatusOK, ExportResponse{
		DraftID: bundle.DraftID,
		Title:   bundle.Title,
		Body:    bundle.Body,
		Images:  images,
	})
}
