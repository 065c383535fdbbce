package handlers

import (
	"context"
	"net/http"

	"github.com/sourcingworks/rfqsmith/internal/api"
)

type ReclassifyService interface {
	EnqueueReclassification(ctx context.Context) (int, error)
}

// AdminHandler exposes maintenance operations.
type AdminHandler struct {
	reclassify ReclassifyService
}

func NewAdminHandler(reclassify ReclassifyService) *AdminHandler {
	return &AdminHandler{reclassify: reclassify}
}

type ReclassifyResponse struct {
	Enqueued int `json:"enqueued"`
}

// Reclassify queues relabeling jobs for images whose cached label came
// from an older classifier model.
func (h *AdminHandler) Reclassify(w http.ResponseWriter, r *http.Request) {
	enqueued, err := h.reclassify.EnqueueReclassification(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, ReclassifyResponse{Enqueued: enqueued})
}
