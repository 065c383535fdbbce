package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/service"
)

// ChunkRepository handles persistence and search of embedded text chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a document and inserts new ones.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.TextChunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks (id, document_id, chunk_index, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.DocumentID, c.Index, c.Content, pgvector.NewVector(c.Embedding), createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// SearchSemantic ranks chunks by cosine similarity to the query
// embedding. Scores are clamped to [0,1].
func (r *ChunkRepository) SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]*service.ChunkSearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.document_id, d.filename, d.category, d.uploaded_at, c.content,
		        GREATEST(0, 1 - (c.embedding <=> $1)) AS score
		 FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE c.embedding IS NOT NULL
		 ORDER BY c.embedding <=> $1 ASC
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkResults(rows)
}

// SearchLexical ranks chunks by full-text match. ts_rank_cd with
// normalization flag 32 keeps scores in [0,1).
func (r *ChunkRepository) SearchLexical(ctx context.Context, query string, limit int) ([]*service.ChunkSearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.document_id, d.filename, d.category, d.uploaded_at, c.content,
		        ts_rank_cd(c.content_tsv, websearch_to_tsquery('english', $1), 32) AS score
		 FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE c.content_tsv @@ websearch_to_tsquery('english', $1)
		 ORDER BY score DESC
		 LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkResults(rows)
}

func scanChunkResults(rows pgx.Rows) ([]*service.ChunkSearchResult, error) {
	var results []*service.ChunkSearchResult
	for rows.Next() {
		var c service.ChunkSearchResult
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Filename, &c.Category, &c.UploadedAt, &c.Content, &c.Score); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}
