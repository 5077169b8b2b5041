package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
)

const maxRetryDelay = 5 * time.Second

// RetryEmbedder retries transient provider failures with exponential backoff.
// Context cancellation aborts the wait between attempts.
type RetryEmbedder struct {
	inner       domain.Embedder
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
}

// NewRetryEmbedder wraps an embedder with bounded retries.
// maxAttempts includes the first try; values below 1 are treated as 1.
func NewRetryEmbedder(
	inner domain.Embedder, maxAttempts int, baseDelay time.Duration, logger *zap.Logger,
) *RetryEmbedder {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryEmbedder{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

// Embed retries the inner embedder on provider errors.
func (r *RetryEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := r.wait(ctx, attempt-1); err != nil {
				return domain.EmbeddingResult{}, err
			}
			r.logger.Warn("Retrying embedding request",
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr),
			)
		}

		result, err := r.inner.Embed(ctx, text)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}

	return domain.EmbeddingResult{}, fmt.Errorf("embed after %d attempts: %w", r.maxAttempts, lastErr)
}

// BatchEmbed retries the inner batch call on provider errors.
func (r *RetryEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := r.wait(ctx, attempt-1); err != nil {
				return domain.BatchEmbeddingResult{}, err
			}
			r.logger.Warn("Retrying batch embedding request",
				zap.Int("attempt", attempt+1),
				zap.Int("batch_size", len(texts)),
				zap.Error(lastErr),
			)
		}

		result, err := r.batchInner(ctx, texts)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}

	return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed after %d attempts: %w", r.maxAttempts, lastErr)
}

func (r *RetryEmbedder) batchInner(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := r.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, r.inner, texts)
}

func (r *RetryEmbedder) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(retryDelay(r.baseDelay, attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// retryable reports whether the failure is worth another attempt.
// Provider errors are transient (rate limits, overload); everything else
// (cancellation, malformed responses) is not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, domain.ErrEmbeddingProvider) || errors.Is(err, domain.ErrGenerationProvider)
}

// retryDelay grows exponentially per attempt, capped at maxRetryDelay.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base << attempt
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}
