package domain

import (
	"fmt"
	"time"
)

// ReclassifyJobStatus represents the status of a reclassification job
type ReclassifyJobStatus string

const (
	ReclassifyJobStatusPending    ReclassifyJobStatus = "pending"
	ReclassifyJobStatusProcessing ReclassifyJobStatus = "processing"
	ReclassifyJobStatusCompleted  ReclassifyJobStatus = "completed"
	ReclassifyJobStatusFailed     ReclassifyJobStatus = "failed"
)

// ReclassifyJob asks the worker to recompute one image's relevance
// label. Jobs are enqueued when the classifier model version changes;
// the stored label is a cache, never authoritative across versions.
type ReclassifyJob struct {
	ID          string
	ImageID     int64
	TargetModel string
	Status      ReclassifyJobStatus
	Retries     int
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewReclassifyJob creates a pending job for one image.
func NewReclassifyJob(id string, imageID int64, targetModel string, now time.Time) *ReclassifyJob {
	return &ReclassifyJob{
		ID:          id,
		ImageID:     imageID,
		TargetModel: targetModel,
		Status:      ReclassifyJobStatusPending,
		CreatedAt:   now,
	}
}

// ValidateReclassifyJob validates a ReclassifyJob instance.
func ValidateReclassifyJob(j *ReclassifyJob) error {
	if j == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if j.ImageID <= 0 {
		return fmt.Errorf("job ImageID is required")
	}
	if j.TargetModel == "" {
		return fmt.Errorf("job TargetModel is required")
	}
	if !isValidReclassifyJobStatus(j.Status) {
		return fmt.Errorf("job Status is invalid: %s", j.Status)
	}
	return nil
}

func isValidReclassifyJobStatus(s ReclassifyJobStatus) bool {
	switch s {
	case ReclassifyJobStatusPending, ReclassifyJobStatusProcessing, ReclassifyJobStatusCompleted, ReclassifyJobStatusFailed:
		return true
	}
	return false
}
