// Package index provides an in-memory per-document vector index with
// brute-force cosine similarity search.
package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Index maps one document's chunks to their embedding vectors. Built once,
// read-only thereafter; concurrent Search calls are safe.
type Index struct {
	chunks  []domain.Chunk
	vectors [][]float32 // unit-normalized at build
	dim     int
}

// Build validates and constructs an index. Chunks and vectors must have equal
// length and every vector the same non-zero dimension; anything else fails
// with domain.ErrInvalidIndex. Vectors are L2-normalized so Search reduces to
// an inner product — embedding magnitude carries no meaning for the providers
// this service targets.
func Build(chunks []domain.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%d chunks but %d vectors: %w", len(chunks), len(vectors), domain.ErrInvalidIndex)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty build: %w", domain.ErrInvalidIndex)
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("zero-dimension vector: %w", domain.ErrInvalidIndex)
	}

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, index has %d: %w",
				i, len(v), dim, domain.ErrInvalidIndex)
		}
		normalized[i] = normalize(v)
	}

	idx := &Index{
		chunks:  make([]domain.Chunk, len(chunks)),
		vectors: normalized,
		dim:     dim,
	}
	copy(idx.chunks, chunks)
	return idx, nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// Dimension returns the vector dimension shared by all entries.
func (idx *Index) Dimension() int { return idx.dim }

// Search returns the k chunks most similar to the query vector, descending by
// cosine similarity, ties broken by lower chunk sequence index. Returns all
// chunks when the index holds fewer than k.
func (idx *Index) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	if len(query) != idx.dim {
		return nil, fmt.Errorf("query dimension %d, index dimension %d: %w",
			len(query), idx.dim, domain.ErrInvalidIndex)
	}
	if k <= 0 {
		return nil, nil
	}

	q := normalize(query)
	scored := make([]domain.ScoredChunk, len(idx.chunks))
	for i, v := range idx.vectors {
		scored[i] = domain.ScoredChunk{Chunk: idx.chunks[i], Score: dot(q, v)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.Seq < scored[j].Chunk.Seq
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
