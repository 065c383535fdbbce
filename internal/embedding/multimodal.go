package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultMultimodalDimensions is the dimension of the shared
	// image/text space served by the CLIP endpoint.
	DefaultMultimodalDimensions = 512

	multimodalTimeout = 30 * time.Second
)

// ErrEmptyImage is returned when image bytes are empty
var ErrEmptyImage = errors.New("image bytes cannot be empty")

// MultimodalAPI defines the interface for the shared-space embedder.
// Text and image embeddings must be comparable by cosine similarity.
type MultimodalAPI interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
}

// MultimodalClient talks to a CLIP-style embedding service over HTTP.
// The service exposes POST /embed/text and POST /embed/image and
// returns {"embedding": [...]} for both. Failed calls get a single
// retry with backoff.
type MultimodalClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	dimensions int
	backoff    time.Duration
}

type MultimodalConfig struct {
	BaseURL    string
	Model      string
	Dimensions int
	HTTPClient *http.Client
}

func NewMultimodalClient(cfg MultimodalConfig) *MultimodalClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: multimodalTimeout}
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultMultimodalDimensions
	}
	return &MultimodalClient{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: httpClient,
		dimensions: dimensions,
		backoff:    retryBackoff,
	}
}

// Model returns the identifier of the embedding model behind the
// endpoint. Image labels are cached per model version.
func (c *MultimodalClient) Model() string {
	return c.model
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedText embeds a query string into the shared image/text space.
func (c *MultimodalClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	body, err := json.Marshal(map[string]string{"text": text, "model": c.model})
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/embed/text", "application/json", bytes.NewReader(body))
}

// EmbedImage embeds raw image bytes into the shared image/text space.
func (c *MultimodalClient) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	return c.post(ctx, "/embed/image", "application/octet-stream", bytes.NewReader(image))
}

func (c *MultimodalClient) post(ctx context.Context, path, contentType string, body *bytes.Reader) ([]float32, error) {
	out, err := c.postOnce(ctx, path, contentType, body)
	if err == nil || errors.Is(err, ErrWrongDimensions) {
		return out, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.backoff):
	}

	if _, seekErr := body.Seek(0, io.SeekStart); seekErr != nil {
		return nil, err
	}
	out, retryErr := c.postOnce(ctx, path, contentType, body)
	if retryErr != nil {
		return nil, fmt.Errorf("embedding service failed after retry: %w", retryErr)
	}
	return out, nil
}

func (c *MultimodalClient) postOnce(ctx context.Context, path, contentType string, body *bytes.Reader) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(out.Embedding) != c.dimensions {
		return nil, ErrWrongDimensions
	}
	return out.Embedding, nil
}
