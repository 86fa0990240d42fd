package client

import (
	"context"
	"sync"

	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/workflow"
)

// RevisionLoader fetches revision histories for detail views. Each ticket id
// has its own cancellation key, so a view that closes can drop its load
// while the board keeps loading.
type RevisionLoader struct {
	engine *Engine

	mu      sync.RWMutex
	history map[string][]domain.Revision
}

// NewRevisionLoader constructs the loader.
func NewRevisionLoader(engine *Engine) *RevisionLoader {
	return &RevisionLoader{engine: engine, history: make(map[string][]domain.Revision)}
}

// Load fetches and stores a ticket's history. It returns ErrStale when the
// load was released or superseded before the response arrived.
func (l *RevisionLoader) Load(ctx context.Context, ticketID string) ([]domain.Revision, error) {
	tracker := l.engine.tracker
	reqCtx, gen := tracker.Begin(ctx, revisionsKey(ticketID))
	revisions, err := l.engine.gateway.Revisions(reqCtx, ticketID)
	if err != nil {
		current := tracker.Current(gen)
		tracker.Finish(gen)
		if !current {
			return nil, ErrStale
		}
		return nil, err
	}
	workflow.SortByVersion(revisions)
	applied := tracker.Commit(gen, func() {
		l.mu.Lock()
		l.history[ticketID] = revisions
		l.mu.Unlock()
	})
	if !applied {
		return nil, ErrStale
	}
	return revisions, nil
}

// Release cancels any in-flight load for the ticket and forgets its history.
func (l *RevisionLoader) Release(ticketID string) {
	l.engine.tracker.Cancel(revisionsKey(ticketID))
	l.mu.Lock()
	delete(l.history, ticketID)
	l.mu.Unlock()
}

// History returns the loaded history ordered by version.
func (l *RevisionLoader) History(ticketID string) ([]domain.Revision, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	revisions, ok := l.history[ticketID]
	if !ok {
		return nil, false
	}
	return append([]domain.Revision(nil), revisions...), true
}

// Current returns the highest version of a loaded history.
func (l *RevisionLoader) Current(ticketID string) (domain.Revision, bool) {
	revisions, ok := l.History(ticketID)
	if !ok {
		return domain.Revision{}, false
	}
	return workflow.Current(revisions)
}

func revisionsKey(ticketID string) string {
	return "revisions:" + ticketID
}
