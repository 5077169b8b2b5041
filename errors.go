package docqa

import "github.com/kailas-cloud/docqa/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound           = domain.ErrNotFound
	ErrUnsupportedFormat  = domain.ErrUnsupportedFormat
	ErrExtraction         = domain.ErrExtraction
	ErrEmptyDocument      = domain.ErrEmptyDocument
	ErrBuildInProgress    = domain.ErrBuildInProgress
	ErrNoRelevantContext  = domain.ErrNoRelevantContext
	ErrEmbeddingProvider  = domain.ErrEmbeddingProvider
	ErrGenerationProvider = domain.ErrGenerationProvider
	ErrSessionFailed      = domain.ErrSessionFailed
)
