package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sourcingworks/rfqsmith/internal/api"
	"github.com/sourcingworks/rfqsmith/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, query string, topK int) ([]*service.DocumentHit, error)
}

type ImageSearchService interface {
	SearchImages(ctx context.Context, query string, topK int) ([]*service.ImageSearchResult, error)
}

type SearchHandler struct {
	retrieval SearchService
	images    ImageSearchService
}

func NewSearchHandler(retrieval SearchService, images ImageSearchService) *SearchHandler {
	return &SearchHandler{retrieval: retrieval, images: images}
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type SearchResultResponse struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Category   string  `json:"category"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet,omitempty"`
}

type SearchResponse struct {
	Results []*SearchResultResponse `json:"results"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TopK == 0 {
		req.TopK = service.DefaultTopK
	}

	hits, err := h.retrieval.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]*SearchResultResponse, len(hits))
	for i, hit := range hits {
		results[i] = &SearchResultResponse{
			DocumentID: hit.DocumentID,
			Filename:   hit.Filename,
			Category:   string(hit.Category),
			Score:      hit.Score,
			Snippet:    hit.Snippet,
		}
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: results})
}

type ImageSearchResultResponse struct {
	ID          int64   `json:"id"`
	DocumentID  string  `json:"document_id"`
	Description string  `json:"description,omitempty"`
	Format      string  `json:"format"`
	Page        int     `json:"page"`
	Score       float64 `json:"score"`
}

type ImageSearchResponse struct {
	Results []*ImageSearchResultResponse `json:"results"`
}

func (h *SearchHandler) SearchImages(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TopK == 0 {
		req.TopK = service.DefaultImageTopK
	}

	hits, err := h.images.SearchImages(r.Context(), req.Query, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]*ImageSearchResultResponse, len(hits))
	for i, hit := range hits {
		results[i] = &ImageSearchResultResponse{
			ID:          hit.Image.ID,
			DocumentID:  hit.Image.DocumentID,
			Description: hit.Image.Description,
			Format:      hit.Image.Format,
			Page:        hit.Image.Page,
			Score:       hit.Score,
		}
	}

	api.Success(w, http.StatusOK, ImageSearchResponse{Results: results})
}
