package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sourcingworks/rfqsmith/internal/domain"
)

var ErrReclassifyJobNotFound = errors.New("reclassify job not found")

type ReclassifyJobRepository struct {
	db dbtx
}

func NewReclassifyJobRepository(pool *pgxpool.Pool) *ReclassifyJobRepository {
	return &ReclassifyJobRepository{db: pool}
}

func NewReclassifyJobRepositoryWithTx(tx pgx.Tx) *ReclassifyJobRepository {
	return &ReclassifyJobRepository{db: tx}
}

func (r *ReclassifyJobRepository) Create(ctx context.Context, job *domain.ReclassifyJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO reclassify_jobs (id, image_id, target_model, status, retries, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.ImageID, job.TargetModel, job.Status, job.Retries, nullableString(job.Error), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

// ClaimPending atomically moves up to limit pending jobs to processing
// and returns them. FOR UPDATE SKIP LOCKED keeps concurrent workers
// from claiming the same job.
func (r *ReclassifyJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.ReclassifyJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM reclassify_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE reclassify_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE reclassify_jobs.id = cte.id
		 RETURNING reclassify_jobs.id, reclassify_jobs.image_id, reclassify_jobs.target_model,
		           reclassify_jobs.status, reclassify_jobs.retries, reclassify_jobs.error,
		           reclassify_jobs.created_at, reclassify_jobs.processed_at`,
		domain.ReclassifyJobStatusPending, limit, domain.ReclassifyJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.ReclassifyJob
	for rows.Next() {
		job, err := scanReclassifyJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *ReclassifyJobRepository) UpdateStatus(ctx context.Context, id string, status domain.ReclassifyJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.ReclassifyJobStatusCompleted || status == domain.ReclassifyJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE reclassify_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrReclassifyJobNotFound
	}
	return nil
}

func (r *ReclassifyJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE reclassify_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrReclassifyJobNotFound
	}
	return nil
}

func scanReclassifyJob(rows pgx.Rows) (*domain.ReclassifyJob, error) {
	var job domain.ReclassifyJob
	var errMsg pgtype.Text
	if err := rows.Scan(&job.ID, &job.ImageID, &job.TargetModel, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}
