package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/pagination"
	"github.com/sourcingworks/rfqsmith/internal/service"
)

type DraftRepository struct {
	db dbtx
}

func NewDraftRepository(pool *pgxpool.Pool) *DraftRepository {
	return &DraftRepository{db: pool}
}

func NewDraftRepositoryWithTx(tx pgx.Tx) *DraftRepository {
	return &DraftRepository{db: tx}
}

func (r *DraftRepository) Create(ctx context.Context, d *domain.RFQDraft) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO drafts (id, title, body, status, state, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.Title, d.Body, d.Status, d.State, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DraftRepository) GetByID(ctx context.Context, id string) (*domain.RFQDraft, error) {
	var d domain.RFQDraft
	err := r.db.QueryRow(ctx,
		`SELECT id, title, body, status, state, created_at, updated_at
		 FROM drafts WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.Title, &d.Body, &d.Status, &d.State, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDraftNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DraftRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.DraftPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, title, body, status, state, created_at, updated_at
			 FROM drafts
			 WHERE (updated_at, id) < ($1, $2)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, title, body, status, state, created_at, updated_at
			 FROM drafts
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.RFQDraft
	for rows.Next() {
		var d domain.RFQDraft
		if err := rows.Scan(&d.ID, &d.Title, &d.Body, &d.Status, &d.State, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UpdatedAt)
	}

	return &service.DraftPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *DraftRepository) Update(ctx context.Context, d *domain.RFQDraft) error {
	d.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE drafts SET title = $1, body = $2, status = $3, state = $4, updated_at = $5
		 WHERE id = $6`,
		d.Title, d.Body, d.Status, d.State, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDraftNotFound
	}
	return nil
}

func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM drafts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDraftNotFound
	}
	return nil
}
