package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// insufficientAnswer replaces degenerate empty completions from the provider.
const insufficientAnswer = "The document does not contain enough information to answer this question."

// Options tunes retrieval and prompt assembly.
type Options struct {
	// TopK is the number of index hits requested per question.
	TopK int
	// MinSimilarity drops hits scoring below the threshold. Zero keeps everything.
	MinSimilarity float64
	// PromptBudget caps the assembled prompt length in runes.
	PromptBudget int
	// AnswerWithoutContext generates an ungrounded answer when retrieval comes
	// back empty instead of refusing the question.
	AnswerWithoutContext bool
}

// Service answers questions against a built document index: embed the query,
// retrieve the closest chunks, assemble a prompt under the rune budget, and
// run a single generation call.
type Service struct {
	embedder  Embedder
	generator Generator
	opts      Options
	logger    *zap.Logger
}

// New creates a question answering service.
func New(embedder Embedder, generator Generator, opts Options, logger *zap.Logger) *Service {
	return &Service{
		embedder:  embedder,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// Ask answers a question using the given index.
func (s *Service) Ask(ctx context.Context, idx Searcher, query string) (domain.Answer, error) {
	hits, err := s.retrieve(ctx, idx, query)
	if err != nil {
		metrics.QuestionsAnsweredTotal.WithLabelValues("error").Inc()
		return domain.Answer{}, err
	}

	answer, err := s.synthesize(ctx, query, hits)
	if err != nil {
		status := "error"
		if errors.Is(err, domain.ErrNoRelevantContext) {
			status = "refused"
		}
		metrics.QuestionsAnsweredTotal.WithLabelValues(status).Inc()
		return domain.Answer{}, err
	}

	metrics.QuestionsAnsweredTotal.WithLabelValues("success").Inc()
	return answer, nil
}

// retrieve embeds the query and returns index hits at or above the similarity
// threshold, best first. An empty result is valid.
func (s *Service) retrieve(ctx context.Context, idx Searcher, query string) ([]domain.ScoredChunk, error) {
	embResult, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := idx.Search(embResult.Embedding, s.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	if s.opts.MinSimilarity > 0 {
		filtered := hits[:0]
		for _, h := range hits {
			if h.Score >= s.opts.MinSimilarity {
				filtered = append(filtered, h)
			}
		}
		hits = filtered
	}

	return hits, nil
}

// synthesize assembles the prompt and runs one generation call. Context chunks
// keep retrieval order; chunks that do not fit the budget are dropped whole
// from the lowest-similarity end.
func (s *Service) synthesize(ctx context.Context, query string, hits []domain.ScoredChunk) (domain.Answer, error) {
	used := s.fitBudget(query, hits)

	if len(used) == 0 {
		if !s.opts.AnswerWithoutContext {
			return domain.Answer{}, fmt.Errorf("question %q: %w", query, domain.ErrNoRelevantContext)
		}

		s.logger.Debug("Answering without document context", zap.String("query", query))

		result, err := s.generator.Generate(ctx, ungroundedPrompt(query))
		if err != nil {
			return domain.Answer{}, fmt.Errorf("generate ungrounded answer: %w", err)
		}
		return domain.Answer{
			Text:     nonEmpty(result.Text),
			Grounded: false,
		}, nil
	}

	result, err := s.generator.Generate(ctx, groundedPrompt(query, used))
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		// Providers occasionally return an empty completion.
		s.logger.Warn("Empty completion for grounded question", zap.String("query", query))
		return domain.Answer{
			Text:     insufficientAnswer,
			Grounded: false,
			Sources:  used,
		}, nil
	}

	return domain.Answer{
		Text:     text,
		Grounded: true,
		Sources:  used,
	}, nil
}

// fitBudget keeps the highest-similarity prefix of hits whose assembled prompt
// stays within the rune budget. Chunks are never truncated.
func (s *Service) fitBudget(query string, hits []domain.ScoredChunk) []domain.ScoredChunk {
	if s.opts.PromptBudget <= 0 {
		return hits
	}

	used := hits
	for len(used) > 0 {
		if len([]rune(groundedPrompt(query, used))) <= s.opts.PromptBudget {
			break
		}
		dropped := used[len(used)-1]
		s.logger.Debug("Dropping chunk over prompt budget",
			zap.Int("seq", dropped.Chunk.Seq),
			zap.Float64("score", dropped.Score),
		)
		used = used[:len(used)-1]
	}
	return used
}

func groundedPrompt(query string, hits []domain.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("Context information is below.\n")
	b.WriteString("---------------------\n")
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(h.Chunk.Text)
	}
	b.WriteString("\n---------------------\n")
	b.WriteString("Given the context information and not prior knowledge, answer the query.\n")
	b.WriteString("Query: ")
	b.WriteString(query)
	b.WriteString("\nAnswer: ")
	return b.String()
}

func ungroundedPrompt(query string) string {
	return "Answer the query.\nQuery: " + query + "\nAnswer: "
}

func nonEmpty(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return insufficientAnswer
	}
	return text
}
