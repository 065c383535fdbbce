package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/service"
)

type ImageRepository struct {
	db dbtx
}

func NewImageRepository(pool *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{db: pool}
}

func NewImageRepositoryWithTx(tx pgx.Tx) *ImageRepository {
	return &ImageRepository{db: tx}
}

// Create inserts an image asset and fills in its assigned numeric ID.
func (r *ImageRepository) Create(ctx context.Context, a *domain.ImageAsset) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO images (document_id, storage_key, description, label, label_model, confidence, embedding, format, page, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		a.DocumentID, a.StorageKey, nullableString(a.Description), a.Label, nullableString(a.LabelModel),
		a.Confidence, vectorOrNil(a.Embedding), nullableString(a.Format), a.Page, createdAt,
	).Scan(&a.ID)
}

func (r *ImageRepository) GetByID(ctx context.Context, id int64) (*domain.ImageAsset, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, document_id, storage_key, description, label, label_model, confidence, embedding, format, page, created_at
		 FROM images WHERE id = $1`,
		id,
	)
	a, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrImageNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *ImageRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.ImageAsset, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, storage_key, description, label, label_model, confidence, embedding, format, page, created_at
		 FROM images WHERE document_id = $1 ORDER BY id ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.ImageAsset
	for rows.Next() {
		a, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

func (r *ImageRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM images WHERE document_id = $1`, documentID)
	return err
}

// SearchByEmbedding ranks automobile-labelled images by cosine
// similarity to the query embedding. Unknown and non-automobile
// labels never match.
func (r *ImageRepository) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*service.ImageSearchResult, error) {
	if limit <= 0 {
		limit = 3
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, storage_key, description, label, label_model, confidence, embedding, format, page, created_at,
		        GREATEST(0, 1 - (embedding <=> $1)) AS score
		 FROM images
		 WHERE label = $2 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $1 ASC
		 LIMIT $3`,
		pgvector.NewVector(embedding), domain.ImageLabelAutomobile, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*service.ImageSearchResult
	for rows.Next() {
		var res service.ImageSearchResult
		var a domain.ImageAsset
		var description, labelModel, format *string
		var vec *pgvector.Vector
		err := rows.Scan(&a.ID, &a.DocumentID, &a.StorageKey, &description, &a.Label, &labelModel,
			&a.Confidence, &vec, &format, &a.Page, &a.CreatedAt, &res.Score)
		if err != nil {
			return nil, err
		}
		fillImageOptionals(&a, description, labelModel, format, vec)
		res.Image = &a
		results = append(results, &res)
	}
	return results, rows.Err()
}

// UpdateLabel stores a fresh classification result for an image.
func (r *ImageRepository) UpdateLabel(ctx context.Context, id int64, label domain.ImageLabel, labelModel string, confidence float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE images SET label = $1, label_model = $2, confidence = $3 WHERE id = $4`,
		label, nullableString(labelModel), confidence, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrImageNotFound
	}
	return nil
}

// ListByLabelModelNot returns images whose cached label was produced
// by a different classifier version than target.
func (r *ImageRepository) ListByLabelModelNot(ctx context.Context, targetModel string, limit int) ([]*domain.ImageAsset, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, storage_key, description, label, label_model, confidence, embedding, format, page, created_at
		 FROM images
		 WHERE label_model IS DISTINCT FROM $1
		 ORDER BY id ASC
		 LIMIT $2`,
		targetModel, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.ImageAsset
	for rows.Next() {
		a, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

func scanImage(row pgx.Row) (*domain.ImageAsset, error) {
	var a domain.ImageAsset
	var description, labelModel, format *string
	var vec *pgvector.Vector
	err := row.Scan(&a.ID, &a.DocumentID, &a.StorageKey, &description, &a.Label, &labelModel,
		&a.Confidence, &vec, &format, &a.Page, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	fillImageOptionals(&a, description, labelModel, format, vec)
	return &a, nil
}

func fillImageOptionals(a *domain.ImageAsset, description, labelModel, format *string, vec *pgvector.Vector) {
	if description != nil {
		a.Description = *description
	}
	if labelModel != nil {
		a.LabelModel = *labelModel
	}
	if format != nil {
		a.Format = *format
	}
	if vec != nil {
		a.Embedding = vec.Slice()
	}
}

func vectorOrNil(embedding []float32) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}
	v := pgvector.NewVector(embedding)
	return &v
}
