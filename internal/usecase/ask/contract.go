package ask

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Generator produces the answer text from the assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (domain.GenerationResult, error)
}

// Searcher is the read side of a built vector index.
type Searcher interface {
	Search(query []float32, k int) ([]domain.ScoredChunk, error)
}
