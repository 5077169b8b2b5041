package docqa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/chunker"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/extract"
	"github.com/kailas-cloud/docqa/internal/session"
	askuc "github.com/kailas-cloud/docqa/internal/usecase/ask"
)

// Embedder vectorizes text. Implementations wrap an embedding provider API.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in one call. Optional; embedders
// without it are called once per text during index builds.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries one vector per input text, in input order,
// and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Generator produces answer text from a prompt. Implementations wrap a chat
// completion provider API.
type Generator interface {
	Generate(ctx context.Context, prompt string) (GenerationResult, error)
}

// GenerationResult carries the completion text and token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Document is a status snapshot of an uploaded document.
type Document struct {
	ID        string
	Filename  string
	Format    string
	Status    string
	Chunks    int
	CreatedAt time.Time
	ReadyAt   time.Time
}

// Source points at a document chunk an answer was grounded on.
type Source struct {
	ChunkIndex int
	Text       string
	Score      float64
}

// Answer is a synthesized response to a question about one document.
// Grounded is false when the text was produced without document context.
type Answer struct {
	Text     string
	Grounded bool
	Sources  []Source
}

// Client is the embedded docqa entry point: the upload-to-answer pipeline
// without the HTTP server around it.
type Client struct {
	sessions *session.Manager
	ask      *askuc.Service
}

// New creates an embedded Client. An embedder and a generator are required;
// everything else has defaults.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		chunkSize:    1024,
		chunkOverlap: 128,
		topK:         4,
		promptBudget: 8192,
		maxDocuments: 64,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, errors.New("docqa: embedder required (use WithEmbedder)")
	}
	if cfg.generator == nil {
		return nil, errors.New("docqa: generator required (use WithGenerator)")
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	chunk, err := chunker.New(cfg.chunkSize, cfg.chunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("docqa: %w", err)
	}

	docEmbedder := &embedderAdapter{inner: cfg.embedder}
	var queryEmbedder domain.Embedder = docEmbedder
	if cfg.queryInstruction != "" {
		queryEmbedder = domain.NewInstructionEmbedder(docEmbedder, cfg.queryInstruction)
	}

	sessions := session.NewManager(
		extract.NewExtractor(), chunk, docEmbedder,
		cfg.maxDocuments, logger,
	)

	ask := askuc.New(queryEmbedder, &generatorAdapter{inner: cfg.generator}, askuc.Options{
		TopK:                 cfg.topK,
		MinSimilarity:        cfg.minSimilarity,
		PromptBudget:         cfg.promptBudget,
		AnswerWithoutContext: cfg.answerWithoutContext,
	}, logger)

	return &Client{sessions: sessions, ask: ask}, nil
}

// Upload ingests a document and builds its index synchronously. The document
// ID is derived from the content, so uploading identical bytes again returns
// the existing document without rebuilding. The format is taken from the
// filename extension.
func (c *Client) Upload(ctx context.Context, filename string, content []byte) (Document, error) {
	info, err := c.sessions.Upload(ctx, filename, content)
	if err != nil {
		return Document{}, err
	}
	return toDocument(info), nil
}

// Ask answers a question about an uploaded document, waiting for an in-flight
// build of that document if necessary.
func (c *Client) Ask(ctx context.Context, documentID, query string) (Answer, error) {
	idx, err := c.sessions.Acquire(ctx, documentID)
	if err != nil {
		return Answer{}, err
	}

	ans, err := c.ask.Ask(ctx, idx, query)
	if err != nil {
		return Answer{}, err
	}

	sources := make([]Source, len(ans.Sources))
	for i, src := range ans.Sources {
		sources[i] = Source{
			ChunkIndex: src.Chunk.Seq,
			Text:       src.Chunk.Text,
			Score:      src.Score,
		}
	}

	return Answer{Text: ans.Text, Grounded: ans.Grounded, Sources: sources}, nil
}

// Get returns a status snapshot of an uploaded document.
func (c *Client) Get(documentID string) (Document, error) {
	info, err := c.sessions.Get(documentID)
	if err != nil {
		return Document{}, err
	}
	return toDocument(info), nil
}

// List returns snapshots of all resident documents.
func (c *Client) List() []Document {
	infos := c.sessions.List()
	docs := make([]Document, len(infos))
	for i, info := range infos {
		docs[i] = toDocument(info)
	}
	return docs
}

// Evict removes a document and its index.
func (c *Client) Evict(documentID string) error {
	return c.sessions.Evict(documentID)
}

func toDocument(info session.Info) Document {
	return Document{
		ID:        info.DocumentID,
		Filename:  info.Filename,
		Format:    string(info.Format),
		Status:    string(info.State),
		Chunks:    info.Chunks,
		CreatedAt: info.CreatedAt,
		ReadyAt:   info.ReadyAt,
	}
}

// embedderAdapter bridges the public Embedder to the internal contract.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embedding,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts)
	}

	res, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   res.Embeddings,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// generatorAdapter bridges the public Generator to the internal contract.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, prompt string) (domain.GenerationResult, error) {
	res, err := a.inner.Generate(ctx, prompt)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	return domain.GenerationResult{
		Text:             res.Text,
		PromptTokens:     res.PromptTokens,
		CompletionTokens: res.CompletionTokens,
		TotalTokens:      res.TotalTokens,
	}, nil
}
