package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/metrics"
	"github.com/sourcingworks/rfqsmith/internal/telemetry"
)

const (
	// MaxTopK caps how many documents a single search may return.
	MaxTopK = 20
	// DefaultTopK is used when the caller does not specify a limit.
	DefaultTopK = 5

	// minRelevanceScore is the floor below which hits are dropped
	// rather than surfaced as weak matches.
	minRelevanceScore = 0.30

	// Hybrid weighting between the two ranking signals. Fixed at an
	// even split; both scores are normalized to [0,1] before mixing.
	semanticWeight = 0.5
	lexicalWeight  = 0.5

	candidateMultiplier = 4
	minCandidates       = 20
	maxCandidates       = 200
	snippetMaxChars     = 220
)

// ChunkRepositoryInterface defines the repository interface for chunk
// persistence and search.
type ChunkRepositoryInterface interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.TextChunk) error
	SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]*ChunkSearchResult, error)
	SearchLexical(ctx context.Context, query string, limit int) ([]*ChunkSearchResult, error)
}

// ChunkSearchResult is one chunk hit from either ranking signal.
type ChunkSearchResult struct {
	ChunkID    string
	DocumentID string
	Filename   string
	Category   domain.DocumentCategory
	UploadedAt time.Time
	Content    string
	Score      float64
}

// TextEmbedder embeds query and chunk text into the retrieval space.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// DocumentHit is one ranked document in a search response. Score is
// the best hybrid chunk score within the document.
type DocumentHit struct {
	DocumentID string
	Filename   string
	Category   domain.DocumentCategory
	Score      float64
	Snippet    string
}

// RetrievalService ranks documents against a query by mixing semantic
// and lexical chunk scores.
type RetrievalService struct {
	chunkRepo ChunkRepositoryInterface
	embedder  TextEmbedder
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(chunkRepo ChunkRepositoryInterface, embedder TextEmbedder) *RetrievalService {
	return &RetrievalService{
		chunkRepo: chunkRepo,
		embedder:  embedder,
	}
}

// Search returns up to topK documents relevant to query, best first.
// An empty result is a valid outcome, not an error.
func (s *RetrievalService) Search(ctx context.Context, query string, topK int) ([]*DocumentHit, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	timer := prometheus.NewTimer(metrics.RetrievalDuration)
	defer timer.ObserveDuration()

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

	candidateLimit := topK * candidateMultiplier
	if candidateLimit < minCandidates {
		candidateLimit = minCandidates
	}
	if candidateLimit > maxCandidates {
		candidateLimit = maxCandidates
	}

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "embedding service unavailable", err)
	}

	semantic, err := s.chunkRepo.SearchSemantic(ctx, embedding, candidateLimit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	lexical, err := s.chunkRepo.SearchLexical(ctx, query, candidateLimit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	hits := mergeChunkScores(semantic, lexical)

	out := make([]*DocumentHit, 0, topK)
	for _, h := range hits {
		if h.Score < minRelevanceScore {
			continue
		}
		out = append(out, h)
		if len(out) >= topK {
			break
		}
	}
	return out, nil
}

type docAccumulator struct {
	hit        *DocumentHit
	uploadedAt time.Time
}

// mergeChunkScores combines per-chunk semantic and lexical scores into
// per-document hits. A chunk missing from one signal contributes zero
// for that side; a document's score is its best chunk's mix.
func mergeChunkScores(semantic, lexical []*ChunkSearchResult) []*DocumentHit {
	type mixed struct {
		chunk    *ChunkSearchResult
		semantic float64
		lexical  float64
	}

	byChunk := make(map[string]*mixed)
	for _, c := range semantic {
		byChunk[c.ChunkID] = &mixed{chunk: c, semantic: c.Score}
	}
	for _, c := range lexical {
		if m, ok := byChunk[c.ChunkID]; ok {
			m.lexical = c.Score
		} else {
			byChunk[c.ChunkID] = &mixed{chunk: c, lexical: c.Score}
		}
	}

	byDoc := make(map[string]*docAccumulator)
	for _, m := range byChunk {
		score := semanticWeight*m.semantic + lexicalWeight*m.lexical
		acc, ok := byDoc[m.chunk.DocumentID]
		if !ok || score > acc.hit.Score {
			byDoc[m.chunk.DocumentID] = &docAccumulator{
				hit: &DocumentHit{
					DocumentID: m.chunk.DocumentID,
					Filename:   m.chunk.Filename,
					Category:   m.chunk.Category,
					Score:      score,
					Snippet:    makeSnippet(m.chunk.Content),
				},
				uploadedAt: m.chunk.UploadedAt,
			}
		}
	}

	accs := make([]*docAccumulator, 0, len(byDoc))
	for _, acc := range byDoc {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(i, j int) bool {
		if accs[i].hit.Score != accs[j].hit.Score {
			return accs[i].hit.Score > accs[j].hit.Score
		}
		// Equal scores: prefer the fresher document.
		return accs[i].uploadedAt.After(accs[j].uploadedAt)
	})

	hits := make([]*DocumentHit, len(accs))
	for i, acc := range accs {
		hits[i] = acc.hit
	}
	return hits
}

func makeSnippet(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= snippetMaxChars {
		return content
	}
	cut := snippetMaxChars
	for i := cut; i > snippetMaxChars/2; i-- {
		if runes[i-1] == ' ' {
			cut = i - 1
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])) + "..."
}
