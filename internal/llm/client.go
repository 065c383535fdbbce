// Package llm wraps an OpenAI-compatible chat completion API behind a
// small prompt-in, text-out client. Groq and OpenAI both speak this
// protocol; the base URL selects the provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "llama-3.3-70b-versatile"
	// DefaultMaxTokens bounds a single completion.
	DefaultMaxTokens = 4096
	// DefaultRequestsPerMinute is the client-side rate limit.
	DefaultRequestsPerMinute = 30

	retryBackoff = 2 * time.Second
)

var (
	// ErrEmptyPrompt is returned when the user prompt is empty
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	// ErrNoAPIKey is returned when no completion API key is set
	ErrNoAPIKey = errors.New("LLM_API_KEY environment variable not set")
	// ErrNoChoices is returned when the API responds without any completion
	ErrNoChoices = errors.New("no completion choices returned")
)

// CompletionAPI defines the interface for chat completion calls.
type CompletionAPI interface {
	CreateCompletion(ctx context.Context, system, user string) (string, error)
}

// Client wraps a CompletionAPI with rate limiting and a single retry
// with backoff for transient failures.
type Client struct {
	api     CompletionAPI
	limiter *rate.Limiter
	backoff time.Duration
}

// OpenAIAdapter implements CompletionAPI against go-openai.
type OpenAIAdapter struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	Temperature       float32
	RequestsPerMinute int
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OpenAIAdapter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// CreateCompletion calls the chat completions endpoint with a system
// and user message and returns the first choice's content.
func (a *OpenAIAdapter) CreateCompletion(ctx context.Context, system, user string) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// NewClientWithConfig creates a completion client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	return &Client{
		api:     NewOpenAIAdapter(cfg),
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		backoff: retryBackoff,
	}
}

// NewClientFromEnv creates a completion client from LLM_API_KEY and
// optional LLM_BASE_URL.
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClientWithConfig(Config{
		APIKey:  apiKey,
		BaseURL: os.Getenv("LLM_BASE_URL"),
	}), nil
}

// newClientWithAPI is used by tests to inject a mock API.
func newClientWithAPI(api CompletionAPI) *Client {
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Inf, 1),
		backoff: time.Millisecond,
	}
}

// Complete returns the model's completion for the given prompts. One
// retry with backoff on failure; the second error is returned wrapped.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if user == "" {
		return "", ErrEmptyPrompt
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	out, err := c.api.CreateCompletion(ctx, system, user)
	if err == nil {
		return out, nil
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(c.backoff):
	}

	out, retryErr := c.api.CreateCompletion(ctx, system, user)
	if retryErr != nil {
		return "", fmt.Errorf("completion failed after retry: %w", retryErr)
	}
	return out, nil
}
