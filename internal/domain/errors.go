package domain

import (
	"errors"
	"fmt"
)

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

// Is reports whether target is a DomainError with the same code and message,
// so wrapped copies still match the sentinel they were derived from.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Wrap returns a copy of the error carrying cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Err: cause}
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeUnsupported = "UNSUPPORTED"
	ErrCodeLoader      = "LOADER_FAILURE"
	ErrCodeEmbedding   = "EMBEDDING_FAILURE"
	ErrCodeGeneration  = "GENERATION_FAILURE"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrDimensionMismatch    = NewDomainError(ErrCodeValidation, "embedding dimensionality does not match the index")
)

// Index errors
var (
	ErrIndexNotFound = NewDomainError(ErrCodeNotFound, "no vector index found, update documents first")
)

// Ingestion errors. Unsupported and missing files are skipped by the
// pipeline; loader and embedding failures abort the batch.
var (
	ErrUnsupportedFileType = NewDomainError(ErrCodeUnsupported, "unsupported file type")
	ErrMissingFile         = NewDomainError(ErrCodeNotFound, "file does not exist")
	ErrLoaderFailure       = NewDomainError(ErrCodeLoader, "failed to load document")
	ErrEmbeddingFailure    = NewDomainError(ErrCodeEmbedding, "failed to embed text")
)

// Conversation errors
var (
	ErrGenerationFailure = NewDomainError(ErrCodeGeneration, "failed to generate answer")
)

// IsValidation reports whether err carries a validation code.
func IsValidation(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == ErrCodeValidation
	}
	return false
}
