package client

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/workflow"
)

const boardKey = "board"

// Engine owns the viewer's session, the shared ticket cache and the request
// tracker. Coordinators and loaders are built on top of it.
type Engine struct {
	gateway  Gateway
	cache    *Cache
	tracker  *Tracker
	notifier Notifier
	logger   *zap.Logger

	mu      sync.RWMutex
	session Session
}

// EngineDependencies bundles collaborators for the engine.
type EngineDependencies struct {
	Gateway  Gateway
	Notifier Notifier
	Logger   *zap.Logger
}

// NewEngine constructs an engine with an empty cache.
func NewEngine(deps EngineDependencies) *Engine {
	e := &Engine{
		gateway:  deps.Gateway,
		cache:    NewCache(),
		tracker:  NewTracker(),
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.notifier == nil {
		e.notifier = NewLogNotifier(e.logger)
	}
	return e
}

// Start resolves the session and loads the board.
func (e *Engine) Start(ctx context.Context) error {
	session, err := e.gateway.Me(ctx)
	if err != nil {
		return err
	}
	e.SetSession(session)
	return e.Reload(ctx)
}

// SetSession replaces the viewer identity used for advisory validation.
func (e *Engine) SetSession(session Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = session
}

// Session returns the current viewer.
func (e *Engine) Session() Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session
}

// Cache exposes the shared ticket cache to readers.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Tracker exposes the engine's request tracker.
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// Reload replaces the cache with a fresh board. A reload superseded by a
// newer one returns ErrStale without touching the cache; moves confirmed
// while the board was in flight keep their confirmed record.
func (e *Engine) Reload(ctx context.Context) error {
	reqCtx, gen := e.tracker.Begin(ctx, boardKey)
	since := e.cache.Seq()
	snapshot, err := e.gateway.Board(reqCtx)
	if err != nil {
		current := e.tracker.Current(gen)
		e.tracker.Finish(gen)
		if !current {
			return ErrStale
		}
		return err
	}
	applied := e.tracker.Commit(gen, func() {
		e.cache.LoadSince(snapshot.Tickets, since)
	})
	if !applied {
		return ErrStale
	}
	if folded := domain.ComputeStats(snapshot.Tickets); !folded.Equal(snapshot.Stats) {
		e.logger.Warn("board stats disagree with ticket list; using the ticket list",
			zap.Int("tickets", folded.Total),
			zap.Int("reported_total", snapshot.Stats.Total))
	}
	return nil
}

// Close cancels every in-flight request; late responses are discarded.
func (e *Engine) Close() {
	e.tracker.CancelAll()
}

func (e *Engine) request(from, to domain.TicketStatus) workflow.Request {
	session := e.Session()
	return workflow.Request{
		From:         from,
		To:           to,
		Actor:        session.Actor.Kind,
		Capabilities: session.Capabilities,
	}
}

// reloadAfterFailure resyncs the cache after a failed or ambiguous mutation.
func (e *Engine) reloadAfterFailure(ctx context.Context, cause string) {
	if err := e.Reload(ctx); err != nil && err != ErrStale {
		e.logger.Warn("board reload failed", zap.String("cause", cause), zap.Error(err))
	}
}
