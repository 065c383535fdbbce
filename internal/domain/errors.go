package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeModelOutput      = "MODEL_OUTPUT_ERROR"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "search query cannot be empty")
	ErrInvalidTopK          = NewDomainError(ErrCodeValidation, "top_k must be greater than zero")
	ErrInvalidCategory      = NewDomainError(ErrCodeValidation, "invalid document category")
	ErrInvalidDraftStatus   = NewDomainError(ErrCodeValidation, "invalid draft status")
	ErrUnsupportedFileType  = NewDomainError(ErrCodeValidation, "unsupported file type, only pdf and docx are accepted")
	ErrEmptyDocumentText    = NewDomainError(ErrCodeValidation, "no text content could be extracted")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrImageNotFound    = NewDomainError(ErrCodeNotFound, "image not found")
	ErrDraftNotFound    = NewDomainError(ErrCodeNotFound, "rfq draft not found")
)

// Operation errors
var (
	ErrDraftNotEditable      = NewDomainError(ErrCodeInvalidOperation, "draft is not in an editable state")
	ErrInvalidStatusChange   = NewDomainError(ErrCodeInvalidOperation, "status transition not allowed")
	ErrDocumentAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "a document with this filename already exists")
	ErrDraftAlreadyGenerated = NewDomainError(ErrCodeInvalidOperation, "session already has an active draft")
)

// Model output errors
var (
	ErrMissingSections    = NewDomainError(ErrCodeModelOutput, "model output is missing mandatory sections")
	ErrFabricatedImageRef = NewDomainError(ErrCodeModelOutput, "model output references an image not present in context")
	ErrTruncatedOutput    = NewDomainError(ErrCodeModelOutput, "model output appears truncated")
)

// Service errors
var (
	ErrCompletionUnavailable = NewDomainError(ErrCodeUnavailable, "language model service unavailable")
	ErrEmbeddingUnavailable  = NewDomainError(ErrCodeUnavailable, "embedding service unavailable")
	ErrStorageOperationFail  = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
