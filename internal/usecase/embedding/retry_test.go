package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
)

func TestRetryEmbedder_SuccessFirstAttempt(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	r := NewRetryEmbedder(inner, 3, time.Millisecond, zap.NewNop())

	res, err := r.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Fatalf("unexpected embedding: %v", res.Embedding)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
}

func TestRetryEmbedder_RecoversAfterTransientError(t *testing.T) {
	inner := &mockEmbedder{
		result:  domain.EmbeddingResult{Embedding: []float32{0.1}},
		errOnce: fmt.Errorf("rate limited: %w", domain.ErrEmbeddingProvider),
	}
	r := NewRetryEmbedder(inner, 3, time.Millisecond, zap.NewNop())

	res, err := r.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Fatalf("unexpected embedding: %v", res.Embedding)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls)
	}
}

func TestRetryEmbedder_ExhaustsAttempts(t *testing.T) {
	inner := &mockEmbedder{err: fmt.Errorf("overloaded: %w", domain.ErrEmbeddingProvider)}
	r := NewRetryEmbedder(inner, 3, time.Millisecond, zap.NewNop())

	_, err := r.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRetryEmbedder_NonRetryableError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("bad request")}
	r := NewRetryEmbedder(inner, 3, time.Millisecond, zap.NewNop())

	_, err := r.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call (no retries), got %d", inner.calls)
	}
}

func TestRetryEmbedder_ContextCanceled(t *testing.T) {
	inner := &mockEmbedder{err: fmt.Errorf("overloaded: %w", domain.ErrEmbeddingProvider)}
	r := NewRetryEmbedder(inner, 5, 10*time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Embed(ctx, "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	// First attempt runs, the wait before the second aborts on cancellation.
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetryEmbedder_BatchRecovers(t *testing.T) {
	inner := &mockEmbedder{
		result:    domain.EmbeddingResult{Embedding: []float32{0.5}},
		batchErr:  fmt.Errorf("overloaded: %w", domain.ErrEmbeddingProvider),
		batchErrN: 1,
	}
	r := NewRetryEmbedder(inner, 3, time.Millisecond, zap.NewNop())

	res, err := r.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
	if inner.batchCalls != 2 {
		t.Errorf("expected 2 batch calls, got %d", inner.batchCalls)
	}
}

func TestRetryDelay_CappedGrowth(t *testing.T) {
	base := 200 * time.Millisecond
	if d := retryDelay(base, 0); d != base {
		t.Errorf("attempt 0: expected %v, got %v", base, d)
	}
	if d := retryDelay(base, 1); d != 2*base {
		t.Errorf("attempt 1: expected %v, got %v", 2*base, d)
	}
	if d := retryDelay(base, 10); d != maxRetryDelay {
		t.Errorf("attempt 10: expected cap %v, got %v", maxRetryDelay, d)
	}
}
