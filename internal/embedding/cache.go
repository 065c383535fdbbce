package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long a cached query embedding lives.
const DefaultCacheTTL = 24 * time.Hour

// TextEmbedder is the consumer-side interface for text embedding.
// Both TextClient and MultimodalClient satisfy it.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// CachedTextEmbedder fronts a TextEmbedder with a Redis cache keyed by
// a hash of the input text. Cache failures are ignored; the underlying
// embedder is always the source of truth.
type CachedTextEmbedder struct {
	inner  TextEmbedder
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCachedTextEmbedder(inner TextEmbedder, rdb *redis.Client, prefix string, ttl time.Duration) *CachedTextEmbedder {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedTextEmbedder{
		inner:  inner,
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *CachedTextEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + ":" + hex.EncodeToString(sum[:])
}

// EmbedText returns the cached embedding for text when present,
// otherwise computes and stores it.
func (c *CachedTextEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	key := c.key(text)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var cached []float32
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	embedding, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(embedding); err == nil {
		c.rdb.Set(ctx, key, raw, c.ttl)
	}
	return embedding, nil
}
