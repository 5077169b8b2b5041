package docqa

import (
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	embedder  Embedder
	generator Generator

	chunkSize    int
	chunkOverlap int

	topK                 int
	minSimilarity        float64
	promptBudget         int
	answerWithoutContext bool

	queryInstruction string

	maxDocuments int

	logger *zap.Logger
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets the answer generation provider. Required.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithChunking sets the chunk size and overlap in runes.
// Defaults: size=1024, overlap=128.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithTopK sets how many chunks are retrieved per question. Default: 4.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithMinSimilarity sets the similarity floor for retrieved chunks.
// Chunks scoring below it are discarded. Default: 0 (no floor).
func WithMinSimilarity(threshold float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.minSimilarity = threshold
	})
}

// WithPromptBudget caps the rune length of the synthesized prompt.
// Default: 8192.
func WithPromptBudget(runes int) Option {
	return optionFunc(func(c *clientConfig) {
		c.promptBudget = runes
	})
}

// WithAnswerWithoutContext makes Ask answer from the question alone when
// retrieval finds nothing relevant, instead of failing with
// ErrNoRelevantContext. Answers produced this way are marked ungrounded.
func WithAnswerWithoutContext() Option {
	return optionFunc(func(c *clientConfig) {
		c.answerWithoutContext = true
	})
}

// WithQueryInstruction prepends a task instruction to query text before
// embedding. Asymmetric embedding models expect this prefix on queries only.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithMaxDocuments caps the number of resident document sessions.
// Default: 64. Values below 1 disable the cap.
func WithMaxDocuments(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxDocuments = n
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
