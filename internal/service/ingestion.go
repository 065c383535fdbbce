package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/extract"
	"github.com/sourcingworks/rfqsmith/internal/metrics"
	"github.com/sourcingworks/rfqsmith/internal/telemetry"
)

// TextExtractor pulls plain text from an uploaded file.
type TextExtractor interface {
	ExtractText(filename string, data []byte) (string, error)
}

// FileTextExtractor extracts text by spooling the upload to a temp
// file; the underlying PDF and DOCX parsers are path-based.
type FileTextExtractor struct{}

func (FileTextExtractor) ExtractText(filename string, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "rfqsmith-*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	pages, err := extract.File(tmp.Name())
	if err != nil {
		return "", err
	}
	return extract.FullText(pages), nil
}

// IngestionService runs the upload pipeline: extract text, chunk,
// embed, persist document and chunks atomically, keep the original
// bytes in object storage. Image registration is a separate step
// because image bytes arrive per image.
type IngestionService struct {
	documentRepo DocumentRepositoryInterface
	images       *ImageService
	txRunner     TxRunner
	storage      ObjectStorage
	extractor    TextExtractor
	embedder     TextEmbedder
	chunkCfg     ChunkConfig
	uuidGen      UUIDGenerator
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	documentRepo DocumentRepositoryInterface,
	images *ImageService,
	txRunner TxRunner,
	storage ObjectStorage,
	extractor TextExtractor,
	embedder TextEmbedder,
) *IngestionService {
	return &IngestionService{
		documentRepo: documentRepo,
		images:       images,
		txRunner:     txRunner,
		storage:      storage,
		extractor:    extractor,
		embedder:     embedder,
		chunkCfg:     DefaultChunkConfig(),
		uuidGen:      &DefaultUUIDGenerator{},
	}
}

// IngestInput represents one uploaded document.
type IngestInput struct {
	Filename string
	Category string
	Data     []byte
}

// IngestDocument runs the full text pipeline for one upload.
// Uploads are serialized per filename: a second upload with the same
// name is rejected, not merged.
func (s *IngestionService) IngestDocument(ctx context.Context, input IngestInput) (*domain.SourceDocument, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.IngestDocument", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	ext := strings.ToLower(filepath.Ext(input.Filename))
	if ext != ".pdf" && ext != ".docx" {
		return nil, domain.ErrUnsupportedFileType
	}
	if len(input.Data) == 0 {
		return nil, domain.ErrEmptyDocumentText
	}

	if _, err := s.documentRepo.GetByFilename(ctx, input.Filename); err == nil {
		return nil, domain.ErrDocumentAlreadyExists
	} else if !errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, err
	}

	text, err := s.extractor.ExtractText(input.Filename, input.Data)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "text extraction failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyDocumentText
	}

	docID := s.uuidGen.NewString()
	storageKey := fmt.Sprintf("documents/%s%s", docID, ext)

	chunks, err := s.embedChunks(ctx, docID, text)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	doc := domain.NewSourceDocument(
		docID,
		input.Filename,
		domain.NormalizeCategory(input.Category),
		int64(len(input.Data)),
		text,
		storageKey,
		nowUTC(),
	)
	if err := domain.ValidateSourceDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	if err := s.storage.PutObject(ctx, storageKey, input.Data, contentTypeForExt(ext)); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "storage operation failed", err)
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		return repos.Chunks().ReplaceChunks(ctx, docID, chunks)
	})
	if err != nil {
		span.SetError(err)
		// Best effort: do not leave orphaned bytes behind.
		_ = s.storage.DeleteObject(ctx, storageKey)
		return nil, err
	}

	metrics.IngestedDocumentsTotal.Inc()
	return doc, nil
}

// ImageInput represents one image registered under a document.
type ImageInput struct {
	DocumentID  string
	Data        []byte
	Format      string
	Page        int
	Description string
}

// IngestImage classifies and embeds one image and persists it under
// its document. Classification failure stores the unknown label; the
// image can be reclassified later.
func (s *IngestionService) IngestImage(ctx context.Context, input ImageInput) (*domain.ImageAsset, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.IngestImage", telemetry.SpanAttributes{
		DocumentID: input.DocumentID,
		Operation:  "ingest_image",
	})
	defer span.End()

	if len(input.Data) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "image bytes are required")
	}
	if _, err := s.documentRepo.GetByID(ctx, input.DocumentID); err != nil {
		return nil, err
	}

	classification := s.images.Classify(ctx, input.Data)

	storageKey := fmt.Sprintf("images/%s/%s", input.DocumentID, s.uuidGen.NewString())
	if err := s.storage.PutObject(ctx, storageKey, input.Data, contentTypeForFormat(input.Format)); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "storage operation failed", err)
	}

	asset := &domain.ImageAsset{
		DocumentID:  input.DocumentID,
		StorageKey:  storageKey,
		Description: input.Description,
		Label:       classification.Label,
		LabelModel:  classification.Model,
		Confidence:  classification.Confidence,
		Embedding:   classification.Embedding,
		Format:      input.Format,
		Page:        input.Page,
		CreatedAt:   nowUTC(),
	}
	if err := domain.ValidateImageAsset(asset); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid image", err)
	}

	if err := s.images.imageRepo.Create(ctx, asset); err != nil {
		span.SetError(err)
		_ = s.storage.DeleteObject(ctx, storageKey)
		return nil, err
	}
	return asset, nil
}

func (s *IngestionService) embedChunks(ctx context.Context, docID, text string) ([]domain.TextChunk, error) {
	parts := chunkText(text, s.chunkCfg)
	chunks := make([]domain.TextChunk, 0, len(parts))
	for i, content := range parts {
		embedding, err := s.embedder.EmbedText(ctx, content)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "embedding service unavailable", err)
		}
		chunks = append(chunks, domain.TextChunk{
			ID:         s.uuidGen.NewString(),
			DocumentID: docID,
			Index:      i,
			Content:    content,
			Embedding:  embedding,
			CreatedAt:  nowUTC(),
		})
	}
	return chunks, nil
}

func contentTypeForExt(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

func contentTypeForFormat(format string) string {
	switch strings.ToLower(format) {
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
