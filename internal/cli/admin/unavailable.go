package admin

import (
	"context"

	"github.com/sourcingworks/rfqsmith/internal/domain"
)

// Fallback adapters for providers that are not configured. They keep
// the rest of the API usable in partial deployments: every call on a
// missing provider maps to a 503 instead of a startup failure.

type unavailableStorage struct{}

func (unavailableStorage) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	return domain.NewDomainError(domain.ErrCodeUnavailable, "object storage not configured")
}

func (unavailableStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	return nil, domain.NewDomainError(domain.ErrCodeUnavailable, "object storage not configured")
}

func (unavailableStorage) DeleteObject(ctx context.Context, key string) error {
	return domain.NewDomainError(domain.ErrCodeUnavailable, "object storage not configured")
}

type unavailableTextEmbedder struct{}

func (unavailableTextEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}

type unavailableCompleter struct{}

func (unavailableCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return "", domain.ErrCompletionUnavailable
}

type unavailableMultimodal struct{}

func (unavailableMultimodal) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}

func (unavailableMultimodal) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}

func (unavailableMultimodal) Model() string {
	return "unconfigured"
}
