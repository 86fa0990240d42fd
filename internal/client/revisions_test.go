package client

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/creative-board/internal/domain"
)

func TestRevisionLoaderOrdersHistory(t *testing.T) {
	f := newFixture(t, owner, ticket("a", domain.TicketStatusInReview))
	feedback := "tighter crop"
	at := baseTime
	f.gateway.revisionsFn = func(context.Context, string) ([]domain.Revision, error) {
		return []domain.Revision{
			{ID: "r2", TicketID: "a", Version: 2},
			{ID: "r1", TicketID: "a", Version: 1, FeedbackAt: &at, FeedbackMessage: &feedback},
		}, nil
	}
	loader := NewRevisionLoader(f.engine)

	revisions, err := loader.Load(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, revisions, 2)
	assert.Equal(t, 1, revisions[0].Version)

	current, ok := loader.Current("a")
	require.True(t, ok)
	assert.Equal(t, "r2", current.ID)
	assert.False(t, current.HasFeedback())
}

func TestRevisionLoaderDiscardsReleasedLoad(t *testing.T) {
	f := newFixture(t, owner, ticket("a", domain.TicketStatusInReview))
	started := make(chan struct{})
	f.gateway.revisionsFn = func(ctx context.Context, _ string) ([]domain.Revision, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	loader := NewRevisionLoader(f.engine)

	done := make(chan error, 1)
	go func() {
		_, err := loader.Load(context.Background(), "a")
		done <- err
	}()
	<-started
	loader.Release("a")

	assert.ErrorIs(t, <-done, ErrStale)
	_, ok := loader.History("a")
	assert.False(t, ok)
}

func TestRevisionLoaderKeepsOnlyLatestLoad(t *testing.T) {
	f := newFixture(t, owner, ticket("a", domain.TicketStatusInReview))
	var calls int32
	firstStarted := make(chan struct{})
	firstRelease := make(chan struct{})
	f.gateway.revisionsFn = func(ctx context.Context, _ string) ([]domain.Revision, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(firstStarted)
			<-firstRelease
			// Respond even though the request was superseded.
			return []domain.Revision{{ID: "old", Version: 1}}, nil
		}
		return []domain.Revision{{ID: "new", Version: 1}, {ID: "newer", Version: 2}}, nil
	}
	loader := NewRevisionLoader(f.engine)

	done := make(chan error, 1)
	go func() {
		_, err := loader.Load(context.Background(), "a")
		done <- err
	}()
	<-firstStarted

	_, err := loader.Load(context.Background(), "a")
	require.NoError(t, err)
	close(firstRelease)
	assert.ErrorIs(t, <-done, ErrStale)

	history, ok := loader.History("a")
	require.True(t, ok)
	require.Len(t, history, 2)
	assert.Equal(t, "newer", history[1].ID)
}

func TestEngineReloadSupersededIsDiscarded(t *testing.T) {
	f := newFixture(t, owner, ticket("a", domain.TicketStatusTodo))
	f.engine.Tracker().Cancel(boardKey)

	// A board request that is cancelled mid-flight leaves the cache alone.
	f.gateway.set(ticket("b", domain.TicketStatusTodo))
	ctx, gen := f.engine.Tracker().Begin(context.Background(), boardKey)
	f.engine.Tracker().Cancel(boardKey)
	assert.Error(t, ctx.Err())
	assert.False(t, f.engine.Tracker().Commit(gen, func() { f.engine.Cache().Load(nil) }))
	assert.Equal(t, 1, f.engine.Cache().Stats().Total)

	require.NoError(t, f.engine.Reload(context.Background()))
	assert.Equal(t, 2, f.engine.Cache().Stats().Total)
}

func TestEngineStartResolvesSession(t *testing.T) {
	f := newFixture(t, member, ticket("a", domain.TicketStatusTodo))
	session := f.engine.Session()
	assert.Equal(t, member.ID, session.Actor.ID)
	assert.False(t, session.Capabilities.CanMoveOnBoard)
	assert.Equal(t, 1, len(f.engine.Cache().Tickets()))
}
