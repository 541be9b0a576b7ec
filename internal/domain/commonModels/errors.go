package commonModels

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid document status transition")
	ErrPipelineRunning    = errors.New("pipeline already running for document")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrValidation         = errors.New("validation failed")
	ErrUpload             = errors.New("upload failed")
	ErrProcessing         = errors.New("processing failed")
	ErrStorageInit        = errors.New("storage initialization failed")
	ErrIndexing           = errors.New("indexing failed")
)

// ValidationError rejects a file before any pipeline state exists.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UploadError is recorded on the document when the backend rejects the file.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Is(target error) bool { return target == ErrUpload }

// ProcessingError happens after a successful upload.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

func (e *ProcessingError) Is(target error) bool { return target == ErrProcessing }

type StorageInitError struct {
	Step string
	Err  error
}

func (e *StorageInitError) Error() string {
	return fmt.Sprintf("storage init %s: %v", e.Step, e.Err)
}

func (e *StorageInitError) Unwrap() error { return e.Err }

func (e *StorageInitError) Is(target error) bool { return target == ErrStorageInit }

type IndexingError struct {
	DocumentID string
	Err        error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("indexing %s: %v", e.DocumentID, e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }

func (e *IndexingError) Is(target error) bool { return target == ErrIndexing }
