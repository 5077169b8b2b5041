// Package session manages per-document question answering sessions: the build
// pipeline from upload to a ready vector index, and the lifecycle around it.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/index"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// Manager owns all document sessions. Uploads build synchronously; questions
// against a building session wait for the in-flight build instead of failing.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	extractor Extractor
	chunker   Chunker
	embedder  Embedder

	maxDocuments int
	logger       *zap.Logger
}

// NewManager creates a session manager. maxDocuments caps the number of
// resident sessions; values below 1 disable the cap.
func NewManager(
	extractor Extractor, chunker Chunker, embedder Embedder,
	maxDocuments int, logger *zap.Logger,
) *Manager {
	return &Manager{
		sessions:     make(map[string]*session),
		extractor:    extractor,
		chunker:      chunker,
		embedder:     embedder,
		maxDocuments: maxDocuments,
		logger:       logger,
	}
}

// Upload ingests a document and builds its index synchronously. The document
// ID is content-addressed, so re-uploading identical bytes returns the
// existing ready session instead of rebuilding. A concurrent upload of the
// same content while its build is in flight fails with ErrBuildInProgress; a
// failed session is replaced by the new build.
func (m *Manager) Upload(ctx context.Context, filename string, content []byte) (Info, error) {
	format, err := domain.FormatFromFilename(filename)
	if err != nil {
		return Info{}, err
	}

	docID := domain.DocumentID(content)

	m.mu.Lock()
	if existing, ok := m.sessions[docID]; ok {
		if existing.building() {
			m.mu.Unlock()
			return Info{}, fmt.Errorf("document %s: %w", docID, domain.ErrBuildInProgress)
		}
		if existing.state == StateReady {
			info := snapshot(existing)
			m.mu.Unlock()
			return info, nil
		}
		// Error session: fall through and rebuild.
		delete(m.sessions, docID)
	}

	if err := m.evictForCapacityLocked(); err != nil {
		m.mu.Unlock()
		return Info{}, err
	}

	sess := &session{
		docID:     docID,
		buildID:   uuid.NewString(),
		filename:  filename,
		format:    format,
		state:     StateExtracting,
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}
	m.sessions[docID] = sess
	m.mu.Unlock()

	m.logger.Info("Document build started",
		zap.String("document_id", docID),
		zap.String("build_id", sess.buildID),
		zap.String("filename", filename),
		zap.String("format", string(format)),
	)

	m.build(ctx, sess, content)

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess.state == StateError {
		return Info{}, sess.err
	}
	return snapshot(sess), nil
}

// build runs extract → chunk → embed → index. Any failure, including context
// cancellation mid-pipeline, lands the session in Error with the failing
// stage attached; the session never stays in a building state.
func (m *Manager) build(ctx context.Context, sess *session, content []byte) {
	start := time.Now()

	text, err := m.extractor.Extract(content, sess.format)
	if err != nil {
		m.fail(sess, domain.StageExtract, err)
		return
	}

	m.transition(sess, StateIndexing)

	chunks := m.chunker.Chunk(text)
	if len(chunks) == 0 {
		m.fail(sess, domain.StageChunk, fmt.Errorf("no chunks produced: %w", domain.ErrEmptyDocument))
		return
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embRes, err := m.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		m.fail(sess, domain.StageEmbed, err)
		return
	}

	idx, err := index.Build(chunks, embRes.Embeddings)
	if err != nil {
		m.fail(sess, domain.StageIndex, err)
		return
	}

	duration := time.Since(start)

	m.mu.Lock()
	sess.state = StateReady
	sess.index = idx
	sess.chunks = idx.Len()
	sess.readyAt = time.Now()
	close(sess.done)
	m.mu.Unlock()

	metrics.DocumentsIndexedTotal.WithLabelValues(string(sess.format), "success").Inc()
	metrics.IndexBuildDuration.WithLabelValues(string(sess.format)).Observe(duration.Seconds())
	metrics.ChunksPerDocument.Observe(float64(idx.Len()))

	m.logger.Info("Document build completed",
		zap.String("document_id", sess.docID),
		zap.String("build_id", sess.buildID),
		zap.Int("chunks", idx.Len()),
		zap.Int("dimensions", idx.Dimension()),
		zap.Int("embedding_tokens", embRes.TotalTokens),
		zap.Duration("duration", duration),
	)
}

func (m *Manager) transition(sess *session, state State) {
	m.mu.Lock()
	sess.state = state
	m.mu.Unlock()
}

func (m *Manager) fail(sess *session, stage domain.Stage, err error) {
	m.mu.Lock()
	sess.state = StateError
	sess.err = domain.NewStageError(stage, err)
	close(sess.done)
	m.mu.Unlock()

	metrics.DocumentsIndexedTotal.WithLabelValues(string(sess.format), "error").Inc()

	m.logger.Error("Document build failed",
		zap.String("document_id", sess.docID),
		zap.String("build_id", sess.buildID),
		zap.String("stage", string(stage)),
		zap.Error(err),
	)
}

// Acquire returns the ready index for a document, waiting for an in-flight
// build if necessary. Unknown or evicted documents fail with ErrNotFound;
// failed sessions with ErrSessionFailed wrapping the build error.
func (m *Manager) Acquire(ctx context.Context, docID string) (*index.Index, error) {
	m.mu.Lock()
	sess, ok := m.sessions[docID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}
	done := sess.done
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for build: %w", ctx.Err())
	case <-done:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch sess.state {
	case StateReady:
		return sess.index, nil
	case StateError:
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionFailed, sess.err)
	default:
		// A session whose done channel is closed is Ready or Error.
		return nil, fmt.Errorf("document %s in unexpected state %s: %w", docID, sess.state, domain.ErrSessionFailed)
	}
}

// Get returns a status snapshot of a session.
func (m *Manager) Get(docID string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[docID]
	if !ok {
		return Info{}, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}
	return snapshot(sess), nil
}

// List returns snapshots of all resident sessions.
func (m *Manager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]Info, 0, len(m.sessions))
	for _, sess := range m.sessions {
		infos = append(infos, snapshot(sess))
	}
	return infos
}

// Evict removes a session. Building sessions cannot be evicted.
func (m *Manager) Evict(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[docID]
	if !ok {
		return fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}
	if sess.building() {
		return fmt.Errorf("document %s: %w", docID, domain.ErrBuildInProgress)
	}

	delete(m.sessions, docID)
	m.logger.Info("Document session evicted", zap.String("document_id", docID))
	return nil
}

// evictForCapacityLocked frees one slot when the cap is reached, preferring
// the oldest Ready session, then the oldest Error session. When every
// resident session is still building there is nothing safe to evict.
func (m *Manager) evictForCapacityLocked() error {
	if m.maxDocuments < 1 || len(m.sessions) < m.maxDocuments {
		return nil
	}

	victim := m.oldestLocked(StateReady)
	if victim == nil {
		victim = m.oldestLocked(StateError)
	}
	if victim == nil {
		return fmt.Errorf("all %d sessions building: %w", len(m.sessions), domain.ErrBuildInProgress)
	}

	delete(m.sessions, victim.docID)
	m.logger.Info("Session evicted for capacity",
		zap.String("document_id", victim.docID),
		zap.String("state", string(victim.state)),
	)
	return nil
}

func (m *Manager) oldestLocked(state State) *session {
	var oldest *session
	for _, sess := range m.sessions {
		if sess.state != state {
			continue
		}
		if oldest == nil || sess.createdAt.Before(oldest.createdAt) {
			oldest = sess
		}
	}
	return oldest
}

func snapshot(sess *session) Info {
	return Info{
		DocumentID: sess.docID,
		Filename:   sess.filename,
		Format:     sess.format,
		State:      sess.state,
		Chunks:     sess.chunks,
		CreatedAt:  sess.createdAt,
		ReadyAt:    sess.readyAt,
		Err:        sess.err,
	}
}
