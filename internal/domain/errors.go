package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals an unknown document reference.
	ErrNotFound = errors.New("document not found")
	// ErrUnsupportedFormat signals a file type outside the allow-list.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrExtraction signals that the byte stream could not be parsed as the declared format.
	ErrExtraction = errors.New("extraction failed")
	// ErrEmptyDocument signals a document with zero extractable text fragments.
	ErrEmptyDocument = fmt.Errorf("empty document: %w", ErrExtraction)
	// ErrInvalidConfig signals invalid chunking or pipeline parameters.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidIndex signals a chunk/vector mismatch or mixed dimensions at index build.
	ErrInvalidIndex = errors.New("invalid index")
	// ErrEmbeddingProvider signals an embedding provider failure after retries.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrGenerationProvider signals a generation provider failure after retries.
	ErrGenerationProvider = errors.New("generation provider error")
	// ErrBuildInProgress signals a concurrent build attempt for the same document.
	ErrBuildInProgress = errors.New("build in progress")
	// ErrNoRelevantContext signals that no chunk met the similarity threshold.
	ErrNoRelevantContext = errors.New("no relevant context")
	// ErrDocumentTooLarge signals an upload exceeding the configured size cap.
	ErrDocumentTooLarge = errors.New("document too large")
	// ErrSessionFailed signals a session stuck in the error state; re-upload to rebuild.
	ErrSessionFailed = errors.New("session failed")
)

// Stage identifies a pipeline build stage for error reporting.
type Stage string

const (
	// StageExtract is the text extraction stage.
	StageExtract Stage = "extract"
	// StageChunk is the chunking stage.
	StageChunk Stage = "chunk"
	// StageEmbed is the embedding stage.
	StageEmbed Stage = "embed"
	// StageIndex is the vector index build stage.
	StageIndex Stage = "index"
)

// StageError records which pipeline stage a build failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Err.Error())
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with the failing pipeline stage.
func NewStageError(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
