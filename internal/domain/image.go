package domain

import (
	"fmt"
	"time"
)

// ImageLabel is the automotive-relevance classification of an extracted image.
type ImageLabel string

const (
	ImageLabelAutomobile    ImageLabel = "automobile"
	ImageLabelNonAutomobile ImageLabel = "non_automobile"
	ImageLabelUnknown       ImageLabel = "unknown"
)

// ImageAsset is an image extracted from a SourceDocument. The image bytes
// never change after ingestion; the classification label is a cache keyed
// by the classifier model version and may be recomputed.
type ImageAsset struct {
	ID          int64
	DocumentID  string
	StorageKey  string
	Description string
	Label       ImageLabel
	LabelModel  string
	Confidence  float32
	Embedding   []float32
	Format      string
	Page        int
	CreatedAt   time.Time
}

// ValidateImageAsset validates an ImageAsset instance.
func ValidateImageAsset(a *ImageAsset) error {
	if a == nil {
		return fmt.Errorf("image asset cannot be nil")
	}
	if a.DocumentID == "" {
		return fmt.Errorf("image asset DocumentID is required")
	}
	if a.StorageKey == "" {
		return fmt.Errorf("image asset StorageKey is required")
	}
	if !IsValidImageLabel(a.Label) {
		return fmt.Errorf("image asset Label is invalid: %s", a.Label)
	}
	return nil
}

// IsValidImageLabel checks if an ImageLabel is one of the known values.
func IsValidImageLabel(l ImageLabel) bool {
	switch l {
	case ImageLabelAutomobile, ImageLabelNonAutomobile, ImageLabelUnknown:
		return true
	}
	return false
}
