package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/pagination"
	"github.com/sourcingworks/rfqsmith/internal/telemetry"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.SourceDocument) error
	GetByID(ctx context.Context, id string) (*domain.SourceDocument, error)
	GetByFilename(ctx context.Context, filename string) (*domain.SourceDocument, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	Delete(ctx context.Context, id string) error
}

type DocumentPageResult struct {
	Items      []*domain.SourceDocument
	NextCursor string
	HasMore    bool
}

// ObjectStorage is the blob store the service keeps document and
// image bytes in.
type ObjectStorage interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// DocumentService handles lookup and deletion of ingested documents.
// Ingestion itself lives in IngestionService.
type DocumentService struct {
	documentRepo DocumentRepositoryInterface
	imageRepo    ImageRepositoryInterface
	storage      ObjectStorage
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(documentRepo DocumentRepositoryInterface, imageRepo ImageRepositoryInterface, storage ObjectStorage) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		imageRepo:    imageRepo,
		storage:      storage,
	}
}

// ListInput represents the input for listing documents
type ListInput struct {
	Cursor string
	Limit  int
}

// List returns a page of ingested documents, newest first.
func (s *DocumentService) List(ctx context.Context, input ListInput) (*DocumentPageResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.List", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.documentRepo.ListWithCursor(ctx, cursor, input.Limit)
}

// GetByID returns one document with its extracted text.
func (s *DocumentService) GetByID(ctx context.Context, id string) (*domain.SourceDocument, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.GetByID", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "get",
	})
	defer span.End()

	return s.documentRepo.GetByID(ctx, id)
}

// Delete removes a document, its images, and their stored bytes.
// Chunks are removed by the ON DELETE CASCADE on the chunks table.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "delete",
	})
	defer span.End()

	doc, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	images, err := s.imageRepo.ListByDocument(ctx, id)
	if err != nil {
		return err
	}
	for _, img := range images {
		if err := s.storage.DeleteObject(ctx, img.StorageKey); err != nil {
			telemetry.CaptureError(ctx, err)
		}
	}
	if err := s.imageRepo.DeleteByDocument(ctx, id); err != nil {
		return err
	}

	if doc.StorageKey != "" {
		if err := s.storage.DeleteObject(ctx, doc.StorageKey); err != nil {
			telemetry.CaptureError(ctx, err)
		}
	}

	return s.documentRepo.Delete(ctx, id)
}

// GetImage returns one image asset's metadata and bytes.
func (s *DocumentService) GetImage(ctx context.Context, id int64) (*domain.ImageAsset, []byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.GetImage", telemetry.SpanAttributes{
		Operation: "get_image",
	})
	defer span.End()

	img, err := s.imageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.storage.GetObject(ctx, img.StorageKey)
	if err != nil {
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to load image bytes", err)
	}
	return img, data, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
