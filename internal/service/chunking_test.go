package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkText_Empty(t *testing.T) {
	assert.Nil(t, chunkText("   \n ", DefaultChunkConfig()))
}

func TestChunkText_ShortTextIsOneChunk(t *testing.T) {
	chunks := chunkText("Caliper bore 54 mm.", DefaultChunkConfig())

	assert.Equal(t, []string{"Caliper bore 54 mm."}, chunks)
}

func TestChunkText_SplitsAtWhitespace(t *testing.T) {
	text := strings.Repeat("caliper housing torque ", 200)
	cfg := ChunkConfig{MaxChars: 300, MinChars: 100, Overlap: 50, MaxChunks: 200}

	chunks := chunkText(text, cfg)

	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), cfg.MaxChars)
		assert.False(t, strings.HasPrefix(c, " "))
		assert.False(t, strings.HasSuffix(c, " "))
	}
}

func TestChunkText_OverlapCarriesContext(t *testing.T) {
	text := strings.Repeat("word ", 500)
	cfg := ChunkConfig{MaxChars: 400, MinChars: 100, Overlap: 100, MaxChunks: 200}

	chunks := chunkText(text, cfg)

	assert.Greater(t, len(chunks), 1)
	// The tail of each chunk reappears at the head of the next.
	for i := 1; i < len(chunks); i++ {
		head := chunks[i][:20]
		assert.Contains(t, chunks[i-1], strings.TrimSpace(head))
	}
}

func TestChunkText_RespectsMaxChunks(t *testing.T) {
	text := strings.Repeat("word ", 5000)
	cfg := ChunkConfig{MaxChars: 100, MinChars: 20, Overlap: 0, MaxChunks: 5}

	chunks := chunkText(text, cfg)

	assert.Len(t, chunks, 5)
}
