package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = append(s.got, text)
	return s.result, s.err
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchGot [][]string
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchGot = append(s.batchGot, texts)
	if s.err != nil {
		return BatchEmbeddingResult{}, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.result.Embedding
	}
	return BatchEmbeddingResult{Embeddings: out}, nil
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "search_query: ")

	result, err := emb.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got[0] != "search_query: hello world" {
		t.Errorf("expected prepended text, got %q", inner.got[0])
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	inner := &stubEmbedder{err: innerErr}
	emb := NewInstructionEmbedder(inner, "search_query: ")

	_, err := emb.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_BatchPrefixesEach(t *testing.T) {
	inner := &stubBatchEmbedder{stubEmbedder: stubEmbedder{result: EmbeddingResult{Embedding: []float32{1}}}}
	emb := NewInstructionEmbedder(inner, "doc: ")

	res, err := emb.BatchEmbed(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Errorf("expected 2 vectors, got %d", len(res.Embeddings))
	}
	want := []string{"doc: one", "doc: two"}
	for i, text := range inner.batchGot[0] {
		if text != want[i] {
			t.Errorf("text[%d] = %q, want %q", i, text, want[i])
		}
	}
}

func TestInstructionEmbedder_BatchFallsBackWithoutNativeBatch(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1}, TotalTokens: 4}}
	emb := NewInstructionEmbedder(inner, "doc: ")

	res, err := emb.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.got) != 3 {
		t.Errorf("inner calls = %d, want 3", len(inner.got))
	}
	if inner.got[2] != "doc: c" {
		t.Errorf("last text = %q", inner.got[2])
	}
	if res.TotalTokens != 12 {
		t.Errorf("total tokens = %d, want 12", res.TotalTokens)
	}
}

func TestBatchFallback_PreservesOrder(t *testing.T) {
	calls := 0
	inner := &funcEmbedder{fn: func(text string) (EmbeddingResult, error) {
		calls++
		return EmbeddingResult{Embedding: []float32{float32(len(text))}}, nil
	}}

	res, err := BatchFallback(context.Background(), inner, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	for i, want := range []float32{1, 2, 3} {
		if res.Embeddings[i][0] != want {
			t.Errorf("embedding[%d] = %v, want %v", i, res.Embeddings[i][0], want)
		}
	}
}

func TestBatchFallback_StopsOnError(t *testing.T) {
	calls := 0
	innerErr := errors.New("provider down")
	inner := &funcEmbedder{fn: func(text string) (EmbeddingResult, error) {
		calls++
		if calls == 2 {
			return EmbeddingResult{}, innerErr
		}
		return EmbeddingResult{Embedding: []float32{1}}, nil
	}}

	_, err := BatchFallback(context.Background(), inner, []string{"a", "b", "c"})
	if !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

type funcEmbedder struct {
	fn func(text string) (EmbeddingResult, error)
}

func (f *funcEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	return f.fn(text)
}
