package session

import (
	"time"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/index"
)

// State is the lifecycle position of a document session.
type State string

const (
	// StateExtracting means the upload is being parsed into text.
	StateExtracting State = "extracting"
	// StateIndexing means chunks are being embedded and indexed.
	StateIndexing State = "indexing"
	// StateReady means the session answers questions.
	StateReady State = "ready"
	// StateError means the build failed; only a re-upload replaces the session.
	StateError State = "error"
)

// session is the per-document record. All fields are guarded by the manager
// mutex except index, which is immutable once the session reaches Ready.
type session struct {
	docID    string
	buildID  string
	filename string
	format   domain.Format

	state  State
	index  *index.Index
	chunks int
	err    error

	createdAt time.Time
	readyAt   time.Time

	// done is closed when the build leaves Extracting/Indexing. Waiters block
	// on it instead of polling.
	done chan struct{}
}

func (s *session) building() bool {
	return s.state == StateExtracting || s.state == StateIndexing
}

// Info is a read-only snapshot of a session for status reporting.
type Info struct {
	DocumentID string
	Filename   string
	Format     domain.Format
	State      State
	Chunks     int
	CreatedAt  time.Time
	ReadyAt    time.Time
	Err        error
}
