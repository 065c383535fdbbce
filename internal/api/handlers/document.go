package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sourcingworks/rfqsmith/internal/api"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/service"
)

type IngestionService interface {
	IngestDocument(ctx context.Context, input service.IngestInput) (*domain.SourceDocument, error)
	IngestImage(ctx context.Context, input service.ImageInput) (*domain.ImageAsset, error)
}

type DocumentService interface {
	List(ctx context.Context, input service.ListInput) (*service.DocumentPageResult, error)
	GetByID(ctx context.Context, id string) (*domain.SourceDocument, error)
	Delete(ctx context.Context, id string) error
	GetImage(ctx context.Context, id int64) (*domain.ImageAsset, []byte, error)
}

type DocumentHandler struct {
	ingestion IngestionService
	documents DocumentService
}

func NewDocumentHandler(ingestion IngestionService, documents DocumentService) *DocumentHandler {
	return &DocumentHandler{ingestion: ingestion, documents: documents}
}

type DocumentResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Category   string `json:"category"`
	SizeBytes  int64  `json:"size_bytes"`
	Text       string `json:"text,omitempty"`
	UploadedAt string `json:"uploaded_at"`
}

func documentToResponse(d *domain.SourceDocument, includeText bool) *DocumentResponse {
	resp := &DocumentResponse{
		ID:         d.ID,
		Filename:   d.Filename,
		Category:   string(d.Category),
		SizeBytes:  d.SizeBytes,
		UploadedAt: d.UploadedAt.Format("2006-01-02T15:04:05Z"),
	}
	if includeText {
		resp.Text = d.Text
	}
	return resp
}

type ImageResponse struct {
	ID          int64   `json:"id"`
	DocumentID  string  `json:"document_id"`
	Description string  `json:"description,omitempty"`
	Label       string  `json:"label"`
	Confidence  float32 `json:"confidence"`
	Format      string  `json:"format"`
	Page        int     `json:"page"`
}

func imageToResponse(a *domain.ImageAsset) *ImageResponse {
	return &ImageResponse{
		ID:          a.ID,
		DocumentID:  a.DocumentID,
		Description: a.Description,
		Label:       string(a.Label),
		Confidence:  a.Confidence,
		Format:      a.Format,
		Page:        a.Page,
	}
}

// Upload ingests one PDF or DOCX document from a multipart form.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	doc, err := h.ingestion.IngestDocument(r.Context(), service.IngestInput{
		Filename: header.Filename,
		Category: r.FormValue("category"),
		Data:     data,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc, false))
}

// UploadImage registers one image under an existing document.
func (h *DocumentHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	page := 0
	if pageStr := r.FormValue("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			page = parsed
		}
	}

	asset, err := h.ingestion.IngestImage(r.Context(), service.ImageInput{
		DocumentID:  documentID,
		Data:        data,
		Format:      r.FormValue("format"),
		Page:        page,
		Description: r.FormValue("description"),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, imageToResponse(asset))
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.documents.List(r.Context(), service.ListInput{Cursor: cursor, Limit: limit})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		responses[i] = documentToResponse(d, false)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   responses,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.documents.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc, true))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.documents.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// GetImage streams one image's bytes.
func (h *DocumentHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid image id")
		return
	}

	img, data, err := h.documents.GetImage(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", imageContentType(img.Format))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func imageContentType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
