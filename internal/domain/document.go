package domain

import (
	"fmt"
	"time"
)

// DocumentCategory classifies an uploaded source document.
type DocumentCategory string

const (
	CategoryDesign        DocumentCategory = "design"
	CategorySafety        DocumentCategory = "safety"
	CategoryQuality       DocumentCategory = "quality"
	CategoryManufacturing DocumentCategory = "manufacturing"
	CategoryGeneral       DocumentCategory = "general"
)

// SourceDocument is an ingested reference document (manual, prior RFQ).
// Immutable once ingested except for deletion.
type SourceDocument struct {
	ID         string
	Filename   string
	Category   DocumentCategory
	SizeBytes  int64
	Text       string
	StorageKey string
	UploadedAt time.Time
}

// TextChunk is the unit of embedding and retrieval granularity.
// Created at ingestion time, never mutated.
type TextChunk struct {
	ID         string
	DocumentID string
	Index      int
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// NewSourceDocument creates a SourceDocument with upload metadata.
func NewSourceDocument(id, filename string, category DocumentCategory, sizeBytes int64, text, storageKey string, uploadedAt time.Time) *SourceDocument {
	return &SourceDocument{
		ID:         id,
		Filename:   filename,
		Category:   category,
		SizeBytes:  sizeBytes,
		Text:       text,
		StorageKey: storageKey,
		UploadedAt: uploadedAt,
	}
}

// ValidateSourceDocument validates a SourceDocument instance.
func ValidateSourceDocument(d *SourceDocument) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}
	if !IsValidCategory(d.Category) {
		return fmt.Errorf("document Category is invalid: %s", d.Category)
	}
	return nil
}

// IsValidCategory checks if a DocumentCategory is one of the known values.
func IsValidCategory(c DocumentCategory) bool {
	switch c {
	case CategoryDesign, CategorySafety, CategoryQuality, CategoryManufacturing, CategoryGeneral:
		return true
	}
	return false
}

// NormalizeCategory maps arbitrary input to a valid category,
// defaulting to general.
func NormalizeCategory(s string) DocumentCategory {
	c := DocumentCategory(s)
	if IsValidCategory(c) {
		return c
	}
	return CategoryGeneral
}
