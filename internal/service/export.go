package service

import (
	"context"

	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/rfq"
	"github.com/sourcingworks/rfqsmith/internal/telemetry"
)

// ExportImage is one resolved image reference in an export bundle.
type ExportImage struct {
	ID     int64
	Format string
	Data   []byte
}

// ExportBundle is a render-ready draft: the body with placeholders
// intact plus the bytes of every image they reference. Rendering to
// PDF/DOCX is an external collaborator's job.
type ExportBundle struct {
	DraftID string
	Title   string
	Body    string
	Images  []ExportImage
}

// ExportService resolves a draft's image placeholders to bytes.
type ExportService struct {
	draftRepo DraftRepositoryInterface
	imageRepo ImageRepositoryInterface
	storage   ObjectStorage
}

// NewExportService creates a new ExportService instance
func NewExportService(draftRepo DraftRepositoryInterface, imageRepo ImageRepositoryInterface, storage ObjectStorage) *ExportService {
	return &ExportService{
		draftRepo: draftRepo,
		imageRepo: imageRepo,
		storage:   storage,
	}
}

// Export builds the render-ready bundle for a draft. Every
// [[IMAGE_ID:n]] in the body must resolve; a dangling reference is an
// error rather than a silently image-less export.
func (s *ExportService) Export(ctx context.Context, draftID string) (*ExportBundle, error) {
	ctx, span := telemetry.StartSpan(ctx, "ExportService.Export", telemetry.SpanAttributes{
		DraftID:   draftID,
		Operation: "export",
	})
	defer span.End()

	draft, err := s.draftRepo.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}

	bundle := &ExportBundle{
		DraftID: draft.ID,
		Title:   draft.Title,
		Body:    draft.Body,
	}

	seen := make(map[int64]bool)
	for _, id := range rfq.ExtractImageIDs(draft.Body) {
		if seen[id] {
			continue
		}
		seen[id] = true

		img, err := s.imageRepo.GetByID(ctx, id)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		data, err := s.storage.GetObject(ctx, img.StorageKey)
		if err != nil {
			span.SetError(err)
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to load image bytes", err)
		}
		bundle.Images = append(bundle.Images, ExportImage{
			ID:     img.ID,
			Format: img.Format,
			Data:   data,
		})
	}
	return bundle, nil
}
