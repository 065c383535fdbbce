package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Static bearer key for the HTTP API. Empty disables auth
	// (local development only).
	APIKey string `envconfig:"API_KEY"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"rfqsmith-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Text embeddings (retrieval) run against OpenAI.
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Completions may target any OpenAI-compatible endpoint.
	LLMAPIKey  string `envconfig:"LLM_API_KEY"`
	LLMBaseURL string `envconfig:"LLM_BASE_URL"`
	LLMModel   string `envconfig:"LLM_MODEL"`

	// CLIP-style multimodal embedding sidecar.
	MultimodalURL   string `envconfig:"MULTIMODAL_URL"`
	MultimodalModel string `envconfig:"MULTIMODAL_MODEL" default:"clip-vit-b32"`

	// Optional Redis cache for text embeddings.
	RedisAddr string `envconfig:"REDIS_ADDR"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Reclassify worker poll interval in seconds.
	WorkerPollSeconds int `envconfig:"WORKER_POLL_SECONDS" default:"10"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RFQSMITH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasLLM() bool {
	return c.LLMAPIKey != ""
}

func (c *Config) HasMultimodal() bool {
	return c.MultimodalURL != ""
}
