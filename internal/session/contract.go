package session

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Extractor turns raw file bytes into plain text.
type Extractor interface {
	Extract(content []byte, format domain.Format) (string, error)
}

// Chunker splits extracted text into overlapping chunks.
type Chunker interface {
	Chunk(text string) []domain.Chunk
}

// Embedder vectorizes chunk texts for index construction.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
