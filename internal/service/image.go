package service

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/telemetry"
)

const (
	// DefaultImageTopK is how many images a search returns by default.
	DefaultImageTopK = 3

	// classifyThreshold is the minimum similarity to the best positive
	// label prompt for an image to count as automotive.
	classifyThreshold = 0.15

	reclassifyBatchSize = 500
)

// Label prompts for zero-shot relevance classification. An image is
// automotive when its embedding sits closer to a positive prompt than
// to every negative one.
var (
	positiveLabelPrompts = []string{
		"a technical diagram of a car part",
		"an engineering drawing of an automotive component",
		"a photo of a vehicle part or assembly",
		"a CAD rendering of a mechanical automotive part",
	}
	negativeLabelPrompts = []string{
		"a photo of a person",
		"a landscape or building",
		"a company logo",
		"a chart, table or slide of text",
	}
)

// ImageRepositoryInterface defines the repository interface for image persistence
type ImageRepositoryInterface interface {
	Create(ctx context.Context, a *domain.ImageAsset) error
	GetByID(ctx context.Context, id int64) (*domain.ImageAsset, error)
	ListByDocument(ctx context.Context, documentID string) ([]*domain.ImageAsset, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*ImageSearchResult, error)
	UpdateLabel(ctx context.Context, id int64, label domain.ImageLabel, labelModel string, confidence float32) error
	ListByLabelModelNot(ctx context.Context, targetModel string, limit int) ([]*domain.ImageAsset, error)
}

// ReclassifyJobRepositoryInterface defines the repository interface
// for enqueueing reclassification jobs.
type ReclassifyJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.ReclassifyJob) error
}

// ImageSearchResult is one ranked image hit.
type ImageSearchResult struct {
	Image *domain.ImageAsset
	Score float64
}

// MultimodalEmbedder embeds text and images into one shared space.
type MultimodalEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
	Model() string
}

// Classification is the outcome of relevance-classifying one image.
type Classification struct {
	Label      domain.ImageLabel
	Model      string
	Confidence float32
	Embedding  []float32
}

// ImageService classifies extracted images and searches them by text query.
type ImageService struct {
	imageRepo ImageRepositoryInterface
	jobRepo   ReclassifyJobRepositoryInterface
	embedder  MultimodalEmbedder
	uuidGen   UUIDGenerator

	mu           sync.Mutex
	labelVectors []labelVector
}

type labelVector struct {
	positive  bool
	embedding []float32
}

// NewImageService creates a new ImageService instance
func NewImageService(imageRepo ImageRepositoryInterface, jobRepo ReclassifyJobRepositoryInterface, embedder MultimodalEmbedder) *ImageService {
	return &ImageService{
		imageRepo: imageRepo,
		jobRepo:   jobRepo,
		embedder:  embedder,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// Classify labels an image as automotive or not by comparing its
// embedding against the label prompts. Provider failure yields the
// unknown label with a nil embedding; unknown images never match
// searches.
func (s *ImageService) Classify(ctx context.Context, image []byte) Classification {
	ctx, span := telemetry.StartSpan(ctx, "ImageService.Classify", telemetry.SpanAttributes{
		Operation: "classify",
	})
	defer span.End()

	unknown := Classification{Label: domain.ImageLabelUnknown, Model: s.embedder.Model()}

	embedding, err := s.embedder.EmbedImage(ctx, image)
	if err != nil {
		span.SetError(err)
		return unknown
	}

	labels, err := s.labelEmbeddings(ctx)
	if err != nil {
		span.SetError(err)
		unknown.Embedding = embedding
		return unknown
	}

	var bestPositive, bestNegative float64
	for _, lv := range labels {
		sim := cosineSimilarity(embedding, lv.embedding)
		if lv.positive {
			if sim > bestPositive {
				bestPositive = sim
			}
		} else if sim > bestNegative {
			bestNegative = sim
		}
	}

	label := domain.ImageLabelNonAutomobile
	if bestPositive >= classifyThreshold && bestPositive > bestNegative {
		label = domain.ImageLabelAutomobile
	}

	return Classification{
		Label:      label,
		Model:      s.embedder.Model(),
		Confidence: float32(bestPositive),
		Embedding:  embedding,
	}
}

// SearchImages returns up to topK automotive images ranked by
// similarity to the query. Images labelled unknown are excluded.
func (s *ImageService) SearchImages(ctx context.Context, query string, topK int) ([]*ImageSearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ImageService.SearchImages", telemetry.SpanAttributes{
		Operation: "search_images",
	})
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		return nil, domain.ErrInvalidTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "embedding service unavailable", err)
	}

	results, err := s.imageRepo.SearchByEmbedding(ctx, embedding, topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	out := results[:0]
	for _, r := range results {
		if r.Score >= minRelevanceScore {
			out = append(out, r)
		}
	}
	return out, nil
}

// EnqueueReclassification queues jobs for every image whose cached
// label came from an older classifier version. Returns the number of
// jobs created.
func (s *ImageService) EnqueueReclassification(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "ImageService.EnqueueReclassification", telemetry.SpanAttributes{
		Operation: "enqueue_reclassify",
	})
	defer span.End()

	target := s.embedder.Model()
	stale, err := s.imageRepo.ListByLabelModelNot(ctx, target, reclassifyBatchSize)
	if err != nil {
		span.SetError(err)
		return 0, err
	}

	created := 0
	for _, img := range stale {
		job := domain.NewReclassifyJob(s.uuidGen.NewString(), img.ID, target, nowUTC())
		if err := s.jobRepo.Create(ctx, job); err != nil {
			span.SetError(err)
			return created, err
		}
		created++
	}
	return created, nil
}

// labelEmbeddings computes and memoizes the label prompt embeddings.
func (s *ImageService) labelEmbeddings(ctx context.Context) ([]labelVector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.labelVectors != nil {
		return s.labelVectors, nil
	}

	vectors := make([]labelVector, 0, len(positiveLabelPrompts)+len(negativeLabelPrompts))
	for _, prompt := range positiveLabelPrompts {
		emb, err := s.embedder.EmbedText(ctx, prompt)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, labelVector{positive: true, embedding: emb})
	}
	for _, prompt := range negativeLabelPrompts {
		emb, err := s.embedder.EmbedText(ctx, prompt)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, labelVector{positive: false, embedding: emb})
	}

	s.labelVectors = vectors
	return vectors, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
