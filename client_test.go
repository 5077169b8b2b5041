package docqa

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// buildDocx assembles a minimal .docx zip with the given document.xml body.
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document.xml: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func testDocx(t *testing.T) []byte {
	t.Helper()
	return buildDocx(t, `<w:document><w:body>`+
		`<w:p><w:r><w:t>The annual report covers fiscal year results.</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>Revenue grew twelve percent year over year.</w:t></w:r></w:p>`+
		`</w:body></w:document>`)
}

type mockEmbedder struct {
	calls int
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return EmbeddingResult{}, m.err
	}
	// Deterministic non-zero vector derived from the text length.
	v := float32(len(text)%7 + 1)
	return EmbeddingResult{Embedding: []float32{v, 1, 0}, TotalTokens: len(text)}, nil
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls int
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	m.batchCalls++
	if m.err != nil {
		return BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		res, _ := m.Embed(ctx, text)
		out[i] = res.Embedding
	}
	return BatchEmbeddingResult{Embeddings: out}, nil
}

type mockGenerator struct {
	text       string
	err        error
	lastPrompt string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (GenerationResult, error) {
	m.lastPrompt = prompt
	if m.err != nil {
		return GenerationResult{}, m.err
	}
	return GenerationResult{Text: m.text, CompletionTokens: 8}, nil
}

func newTestClient(t *testing.T, gen *mockGenerator) *Client {
	t.Helper()
	client, err := New(
		WithEmbedder(&mockBatchEmbedder{}),
		WithGenerator(gen),
		WithChunking(64, 16),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNew_RequiresEmbedder(t *testing.T) {
	_, err := New(WithGenerator(&mockGenerator{}))
	if err == nil {
		t.Fatal("expected error when no embedder provided")
	}
}

func TestNew_RequiresGenerator(t *testing.T) {
	_, err := New(WithEmbedder(&mockEmbedder{}))
	if err == nil {
		t.Fatal("expected error when no generator provided")
	}
}

func TestNew_InvalidChunking(t *testing.T) {
	_, err := New(
		WithEmbedder(&mockEmbedder{}),
		WithGenerator(&mockGenerator{}),
		WithChunking(10, 20),
	)
	if err == nil {
		t.Fatal("expected error for overlap >= size")
	}
}

func TestUploadAndAsk(t *testing.T) {
	gen := &mockGenerator{text: "Revenue grew twelve percent."}
	client := newTestClient(t, gen)
	ctx := context.Background()

	doc, err := client.Upload(ctx, "report.docx", testDocx(t))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Status != "ready" {
		t.Errorf("status = %q, want ready", doc.Status)
	}
	if doc.Chunks == 0 {
		t.Error("expected at least one chunk")
	}
	if doc.Format != "docx" {
		t.Errorf("format = %q, want docx", doc.Format)
	}

	answer, err := client.Ask(ctx, doc.ID, "How much did revenue grow?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Text != "Revenue grew twelve percent." {
		t.Errorf("answer = %q", answer.Text)
	}
	if !answer.Grounded {
		t.Error("expected grounded answer")
	}
	if len(answer.Sources) == 0 {
		t.Fatal("expected at least one source")
	}
	if answer.Sources[0].Text == "" {
		t.Error("source text should be populated")
	}
	if !strings.Contains(gen.lastPrompt, "How much did revenue grow?") {
		t.Error("prompt should contain the query")
	}
}

func TestUpload_SameContentReturnsExisting(t *testing.T) {
	client := newTestClient(t, &mockGenerator{text: "ok"})
	ctx := context.Background()
	content := testDocx(t)

	first, err := client.Upload(ctx, "a.docx", content)
	if err != nil {
		t.Fatalf("first Upload: %v", err)
	}
	second, err := client.Upload(ctx, "b.docx", content)
	if err != nil {
		t.Fatalf("second Upload: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("IDs differ: %q vs %q", first.ID, second.ID)
	}
	if len(client.List()) != 1 {
		t.Errorf("resident documents = %d, want 1", len(client.List()))
	}
}

func TestUpload_UnsupportedFormat(t *testing.T) {
	client := newTestClient(t, &mockGenerator{})

	_, err := client.Upload(context.Background(), "notes.txt", []byte("plain text"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestAsk_UnknownDocument(t *testing.T) {
	client := newTestClient(t, &mockGenerator{})

	_, err := client.Ask(context.Background(), "no-such-doc", "anything?")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEvict(t *testing.T) {
	client := newTestClient(t, &mockGenerator{text: "ok"})
	ctx := context.Background()

	doc, err := client.Upload(ctx, "report.docx", testDocx(t))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := client.Evict(doc.ID); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if _, err := client.Ask(ctx, doc.ID, "still there?"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after evict, got %v", err)
	}
	if err := client.Evict(doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double evict, got %v", err)
	}
}

func TestGet(t *testing.T) {
	client := newTestClient(t, &mockGenerator{text: "ok"})
	ctx := context.Background()

	doc, err := client.Upload(ctx, "report.docx", testDocx(t))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	got, err := client.Get(doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Filename != "report.docx" {
		t.Errorf("filename = %q", got.Filename)
	}
	if got.ReadyAt.IsZero() {
		t.Error("ready document should have ReadyAt set")
	}
}

func TestEmbedderAdapter_BatchFallback(t *testing.T) {
	// A plain Embedder without BatchEmbed is called once per text.
	inner := &mockEmbedder{}
	adapter := &embedderAdapter{inner: inner}

	res, err := adapter.BatchEmbed(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Errorf("embeddings = %d, want 3", len(res.Embeddings))
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3", inner.calls)
	}
}

func TestEmbedderAdapter_NativeBatch(t *testing.T) {
	inner := &mockBatchEmbedder{}
	adapter := &embedderAdapter{inner: inner}

	res, err := adapter.BatchEmbed(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Errorf("embeddings = %d, want 2", len(res.Embeddings))
	}
	if inner.batchCalls != 1 {
		t.Errorf("batch calls = %d, want 1", inner.batchCalls)
	}
}

func TestAsk_GeneratorError(t *testing.T) {
	gen := &mockGenerator{err: errors.New("provider down")}
	client := newTestClient(t, gen)
	ctx := context.Background()

	doc, err := client.Upload(ctx, "report.docx", testDocx(t))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := client.Ask(ctx, doc.ID, "anything?"); err == nil {
		t.Fatal("expected error from failing generator")
	}
}
