package client

import (
	"context"
	"errors"
	"sync"
)

// ErrStale is returned when a response arrives for a request that was
// cancelled or superseded; its payload has not been applied.
var ErrStale = errors.New("client: response is no longer relevant")

// Generation tags one in-flight request for a key.
type Generation struct {
	Key string
	gen uint64
}

type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

// Tracker hands out per-key generations with cancellation. Starting a request
// for a key supersedes the previous one; cancelling a key invalidates whatever
// is in flight for it.
type Tracker struct {
	mu       sync.Mutex
	gens     map[string]uint64
	inflight map[string]inflight
}

// NewTracker constructs a Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		gens:     make(map[string]uint64),
		inflight: make(map[string]inflight),
	}
}

// Begin starts a request for key and returns a context cancelled when the
// request is superseded or the key is cancelled.
func (t *Tracker) Begin(ctx context.Context, key string) (context.Context, Generation) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.inflight[key]; ok {
		prev.cancel()
	}
	t.gens[key]++
	gen := t.gens[key]
	t.inflight[key] = inflight{gen: gen, cancel: cancel}
	return ctx, Generation{Key: key, gen: gen}
}

// Current reports whether g is still the live request for its key.
func (t *Tracker) Current(g Generation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentLocked(g)
}

// Commit runs apply only if g is still current, then finishes g. Checking and
// applying happen under the tracker lock so a concurrent Cancel cannot slip
// in between.
func (t *Tracker) Commit(g Generation, apply func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.currentLocked(g) {
		return false
	}
	apply()
	t.finishLocked(g)
	return true
}

// Finish releases g's context without applying anything.
func (t *Tracker) Finish(g Generation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishLocked(g)
}

// Cancel invalidates the in-flight request for key, if any.
func (t *Tracker) Cancel(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gens[key]++
	if prev, ok := t.inflight[key]; ok {
		prev.cancel()
		delete(t.inflight, key)
	}
}

// CancelAll invalidates every in-flight request.
func (t *Tracker) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, prev := range t.inflight {
		t.gens[key]++
		prev.cancel()
		delete(t.inflight, key)
	}
}

// InFlight reports how many keys have a live request.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

func (t *Tracker) currentLocked(g Generation) bool {
	cur, ok := t.inflight[g.Key]
	return ok && cur.gen == g.gen
}

func (t *Tracker) finishLocked(g Generation) {
	if cur, ok := t.inflight[g.Key]; ok && cur.gen == g.gen {
		cur.cancel()
		delete(t.inflight, g.Key)
	}
}
