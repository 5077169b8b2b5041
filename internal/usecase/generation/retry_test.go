package generation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
)

type mockGenerator struct {
	result  domain.GenerationResult
	err     error
	errOnce error
	calls   int
}

func (m *mockGenerator) Generate(_ context.Context, _ string) (domain.GenerationResult, error) {
	m.calls++
	if m.errOnce != nil {
		err := m.errOnce
		m.errOnce = nil
		return domain.GenerationResult{}, err
	}
	return m.result, m.err
}

func TestRetryGenerator_SuccessFirstAttempt(t *testing.T) {
	inner := &mockGenerator{result: domain.GenerationResult{Text: "answer"}}
	r := NewRetryGenerator(inner, 3, time.Millisecond, zap.NewNop())

	res, err := r.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "answer" {
		t.Errorf("unexpected text: %q", res.Text)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
}

func TestRetryGenerator_RecoversAfterTransientError(t *testing.T) {
	inner := &mockGenerator{
		result:  domain.GenerationResult{Text: "answer"},
		errOnce: fmt.Errorf("overloaded: %w", domain.ErrGenerationProvider),
	}
	r := NewRetryGenerator(inner, 3, time.Millisecond, zap.NewNop())

	res, err := r.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "answer" {
		t.Errorf("unexpected text: %q", res.Text)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls)
	}
}

func TestRetryGenerator_ExhaustsAttempts(t *testing.T) {
	inner := &mockGenerator{err: fmt.Errorf("overloaded: %w", domain.ErrGenerationProvider)}
	r := NewRetryGenerator(inner, 3, time.Millisecond, zap.NewNop())

	_, err := r.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !errors.Is(err, domain.ErrGenerationProvider) {
		t.Errorf("expected ErrGenerationProvider, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRetryGenerator_NonRetryableError(t *testing.T) {
	inner := &mockGenerator{err: errors.New("bad prompt")}
	r := NewRetryGenerator(inner, 3, time.Millisecond, zap.NewNop())

	_, err := r.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call (no retries), got %d", inner.calls)
	}
}

func TestRetryGenerator_ContextCanceled(t *testing.T) {
	inner := &mockGenerator{err: fmt.Errorf("overloaded: %w", domain.ErrGenerationProvider)}
	r := NewRetryGenerator(inner, 5, 10*time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Generate(ctx, "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInstrumentedGenerator_Success(t *testing.T) {
	inner := &mockGenerator{result: domain.GenerationResult{Text: "answer", TotalTokens: 10}}
	p := NewInstrumentedGenerator(inner, "test", "test-model", zap.NewNop())

	res, err := p.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "answer" {
		t.Errorf("unexpected text: %q", res.Text)
	}
}

func TestInstrumentedGenerator_InnerError(t *testing.T) {
	inner := &mockGenerator{err: errors.New("provider down")}
	p := NewInstrumentedGenerator(inner, "test", "test-model", zap.NewNop())

	_, err := p.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error from inner generator")
	}
}
