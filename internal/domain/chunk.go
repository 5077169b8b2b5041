package domain

// Chunk is a bounded contiguous slice of a document's text, the atomic unit of
// retrieval. Start and End are rune offsets into the normalized text; Seq is the
// position within the build. Start offsets are strictly increasing across Seq.
type Chunk struct {
	Seq   int
	Start int
	End   int
	Text  string
}

// ScoredChunk is a retrieval hit: a chunk and its cosine similarity to the query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
