// Package embedding provides the two vector spaces the service
// retrieves in: an OpenAI text space for document chunks and a
// multimodal space shared by images and text queries.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultTextModel is the OpenAI model used for chunk embeddings
	DefaultTextModel = openai.AdaEmbeddingV2
	// DefaultTextDimensions is the expected dimension of chunk embeddings
	DefaultTextDimensions = 1536

	// retryBackoff is the pause before the single retry on a failed
	// embedding call.
	retryBackoff = 2 * time.Second
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// TextEmbeddingAPI defines the interface for text embedding generation
type TextEmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// TextClient generates chunk embeddings via the OpenAI API with a
// single retry with backoff on transient failures.
type TextClient struct {
	api        TextEmbeddingAPI
	dimensions int
	backoff    time.Duration
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultTextModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

type TextConfig struct {
	APIKey     string
	Model      openai.EmbeddingModel
	Dimensions int
}

// NewTextClient creates a text embedding client using defaults.
func NewTextClient(apiKey string) *TextClient {
	return NewTextClientWithConfig(TextConfig{APIKey: apiKey})
}

// NewTextClientWithConfig creates a text embedding client with explicit configuration.
func NewTextClientWithConfig(cfg TextConfig) *TextClient {
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultTextDimensions
	}
	return &TextClient{
		api:        NewOpenAIAdapter(cfg.APIKey, cfg.Model),
		dimensions: dimensions,
		backoff:    retryBackoff,
	}
}

// NewTextClientFromEnv creates a text embedding client using the
// OPENAI_API_KEY environment variable.
func NewTextClientFromEnv() (*TextClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewTextClient(apiKey), nil
}

// EmbedText generates an embedding for the given text. One retry with
// backoff on failure; the second error is returned wrapped.
func (c *TextClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff):
		}

		embedding, err = c.api.CreateEmbeddings(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding after retry: %w", err)
		}
	}

	if len(embedding) != c.dimensions {
		return nil, ErrWrongDimensions
	}

	return embedding, nil
}
