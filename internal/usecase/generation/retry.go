package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
)

const maxRetryDelay = 5 * time.Second

// RetryGenerator retries transient provider failures with exponential backoff.
// Context cancellation aborts the wait between attempts.
type RetryGenerator struct {
	inner       domain.Generator
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
}

// NewRetryGenerator wraps a generator with bounded retries.
// maxAttempts includes the first try; values below 1 are treated as 1.
func NewRetryGenerator(
	inner domain.Generator, maxAttempts int, baseDelay time.Duration, logger *zap.Logger,
) *RetryGenerator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryGenerator{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

// Generate retries the inner generator on provider errors.
func (r *RetryGenerator) Generate(ctx context.Context, prompt string) (domain.GenerationResult, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := r.wait(ctx, attempt-1); err != nil {
				return domain.GenerationResult{}, err
			}
			r.logger.Warn("Retrying generation request",
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr),
			)
		}

		result, err := r.inner.Generate(ctx, prompt)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}

	return domain.GenerationResult{}, fmt.Errorf("generate after %d attempts: %w", r.maxAttempts, lastErr)
}

func (r *RetryGenerator) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(retryDelay(r.baseDelay, attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, domain.ErrGenerationProvider)
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
