package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/pagination"
	"github.com/sourcingworks/rfqsmith/internal/service"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.SourceDocument) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, filename, category, size_bytes, text_content, storage_key, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.Filename, d.Category, d.SizeBytes, d.Text, nullableString(d.StorageKey), d.UploadedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.SourceDocument, error) {
	var d domain.SourceDocument
	var storageKey *string
	err := r.db.QueryRow(ctx,
		`SELECT id, filename, category, size_bytes, text_content, storage_key, uploaded_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.Filename, &d.Category, &d.SizeBytes, &d.Text, &storageKey, &d.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if storageKey != nil {
		d.StorageKey = *storageKey
	}
	return &d, nil
}

func (r *DocumentRepository) GetByFilename(ctx context.Context, filename string) (*domain.SourceDocument, error) {
	var d domain.SourceDocument
	var storageKey *string
	err := r.db.QueryRow(ctx,
		`SELECT id, filename, category, size_bytes, text_content, storage_key, uploaded_at
		 FROM documents WHERE filename = $1`,
		filename,
	).Scan(&d.ID, &d.Filename, &d.Category, &d.SizeBytes, &d.Text, &storageKey, &d.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if storageKey != nil {
		d.StorageKey = *storageKey
	}
	return &d, nil
}

func (r *DocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, filename, category, size_bytes, text_content, storage_key, uploaded_at
			 FROM documents
			 WHERE (uploaded_at, id) < ($1, $2)
			 ORDER BY uploaded_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, filename, category, size_bytes, text_content, storage_key, uploaded_at
			 FROM documents
			 ORDER BY uploaded_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UploadedAt)
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.SourceDocument, error) {
	var results []*domain.SourceDocument
	for rows.Next() {
		var d domain.SourceDocument
		var storageKey *string
		if err := rows.Scan(&d.ID, &d.Filename, &d.Category, &d.SizeBytes, &d.Text, &storageKey, &d.UploadedAt); err != nil {
			return nil, err
		}
		if storageKey != nil {
			d.StorageKey = *storageKey
		}
		results = append(results, &d)
	}
	return results, rows.Err()
}
