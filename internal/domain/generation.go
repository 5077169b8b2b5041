package domain

import "context"

// Generator is the text generation contract. Given a prompt, returns generated
// text. Providers may fail transiently or return empty output; callers must
// tolerate both.
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

// Answer is a synthesized response to a question about one document.
type Answer struct {
	Text     string
	Grounded bool
	Sources  []ScoredChunk
}
