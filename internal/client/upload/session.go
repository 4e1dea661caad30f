package upload

import (
	"context"
	"sync"

	"github.com/dkravets/kitafeed/internal/client/api"
	"github.com/dkravets/kitafeed/internal/client/models"
)

// Outcome tracks how far one file of a session got.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeTransferred
	OutcomeFinalized
	OutcomeFailed
)

// FileState is the per-file record of a session.
type FileState struct {
	File    models.FileInfo
	Outcome Outcome
	// Err is set when Outcome is OutcomeFailed: a *SignError,
	// *TransferError or *FinalizeError.
	Err error
}

// Session is the transient aggregate over one publish/edit action: the
// ordered file list, per-file outcomes, the media ids it caused the server to
// create (the rollback list) and one cancellation signal spanning the whole
// session.
type Session struct {
	PostID    string
	Selection models.TaggedChildSelection

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	states    []FileState
	finalized []string
	// pending is the most recent uploaded-but-not-finalized object; the
	// target cancellation tries to delete.
	pending *api.SignedTarget
}

// NewSession derives the session's cancellation scope from ctx; canceling
// ctx cancels the session.
func NewSession(ctx context.Context, postID string, files []models.FileInfo, selection models.TaggedChildSelection) *Session {
	sctx, cancel := context.WithCancel(ctx)

	states := make([]FileState, len(files))
	for i, f := range files {
		states[i] = FileState{File: f, Outcome: OutcomePending}
	}

	return &Session{
		PostID:    postID,
		Selection: selection,
		ctx:       sctx,
		cancel:    cancel,
		states:    states,
	}
}

// Context returns the session-scoped context threaded through every network
// call of the session.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Cancel triggers the session's cancellation signal. The transactor reacts
// by aborting in-flight calls and running the compensating cleanup.
func (s *Session) Cancel() {
	s.cancel()
}

// Canceled reports whether the cancellation signal has fired.
func (s *Session) Canceled() bool {
	return s.ctx.Err() != nil
}

// States returns a copy of the per-file records.
func (s *Session) States() []FileState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileState, len(s.states))
	copy(out, s.states)
	return out
}

// FinalizedMedia returns the rollback list: every media id this session
// caused the server to create.
func (s *Session) FinalizedMedia() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.finalized))
	copy(out, s.finalized)
	return out
}

func (s *Session) fail(i int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[i].Outcome = OutcomeFailed
	s.states[i].Err = err
}

func (s *Session) markTransferred(i int, target api.SignedTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[i].Outcome = OutcomeTransferred
	s.pending = &target
}

func (s *Session) markFinalized(i int, mediaIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[i].Outcome = OutcomeFinalized
	s.finalized = append(s.finalized, mediaIDs...)
	s.pending = nil
}

func (s *Session) pendingObject() *api.SignedTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// reset clears all session state after a rollback.
func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.states {
		s.states[i] = FileState{File: s.states[i].File, Outcome: OutcomePending}
	}
	s.finalized = nil
	s.pending = nil
}
