package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/service"
)

const (
	// MaxRetries is the maximum number of attempts for a failed job
	MaxRetries = 3

	// claimBatchSize bounds how many jobs one poll claims
	claimBatchSize = 50
)

// ReclassifyJobRepository defines the interface for reclassify job persistence
type ReclassifyJobRepository interface {
	// ClaimPending atomically claims up to limit pending jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.ReclassifyJob, error)

	// UpdateStatus updates the status of a claimed job
	UpdateStatus(ctx context.Context, id string, status domain.ReclassifyJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, id string) error
}

// ImageStore loads image metadata and persists recomputed labels
type ImageStore interface {
	GetByID(ctx context.Context, id int64) (*domain.ImageAsset, error)
	UpdateLabel(ctx context.Context, id int64, label domain.ImageLabel, labelModel string, confidence float32) error
}

// ImageClassifier relabels raw image bytes
type ImageClassifier interface {
	Classify(ctx context.Context, image []byte) service.Classification
}

// ObjectStorage fetches the stored image bytes
type ObjectStorage interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// ReclassifyWorker recomputes cached relevance labels for images whose
// label was produced by an older classifier model.
type ReclassifyWorker struct {
	jobRepo    ReclassifyJobRepository
	images     ImageStore
	classifier ImageClassifier
	storage    ObjectStorage
}

// NewReclassifyWorker creates a new ReclassifyWorker instance
func NewReclassifyWorker(jobRepo ReclassifyJobRepository, images ImageStore, classifier ImageClassifier, storage ObjectStorage) *ReclassifyWorker {
	return &ReclassifyWorker{
		jobRepo:    jobRepo,
		images:     images,
		classifier: classifier,
		storage:    storage,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *ReclassifyWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.jobRepo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending reclassify jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *ReclassifyWorker) processJob(ctx context.Context, job *domain.ReclassifyJob) error {
	if err := w.reclassify(ctx, job); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, domain.ReclassifyJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed: image %d relabelled with %s", job.ID, job.ImageID, job.TargetModel)
	return nil
}

func (w *ReclassifyWorker) reclassify(ctx context.Context, job *domain.ReclassifyJob) error {
	img, err := w.images.GetByID(ctx, job.ImageID)
	if err != nil {
		return fmt.Errorf("failed to load image %d: %w", job.ImageID, err)
	}

	// The label may already be current: a second enqueue sweep can race
	// a job that completed between listing and claiming.
	if img.LabelModel == job.TargetModel {
		return nil
	}

	data, err := w.storage.GetObject(ctx, img.StorageKey)
	if err != nil {
		return fmt.Errorf("failed to fetch image bytes for %d: %w", job.ImageID, err)
	}

	result := w.classifier.Classify(ctx, data)
	if result.Label == domain.ImageLabelUnknown {
		return fmt.Errorf("classifier unavailable for image %d", job.ImageID)
	}

	if err := w.images.UpdateLabel(ctx, job.ImageID, result.Label, result.Model, result.Confidence); err != nil {
		return fmt.Errorf("failed to persist label for image %d: %w", job.ImageID, err)
	}

	return nil
}

// handleJobFailure handles a failed job with retry logic
func (w *ReclassifyWorker) handleJobFailure(ctx context.Context, job *domain.ReclassifyJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.jobRepo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.jobRepo.UpdateStatus(ctx, job.ID, domain.ReclassifyJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.jobRepo.UpdateStatus(ctx, job.ID, domain.ReclassifyJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
