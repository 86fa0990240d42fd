package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/creative-board/internal/domain"
)

func TestBulkMoveToTodoWithCompletedTickets(t *testing.T) {
	f := newFixture(t, owner,
		ticket("t1", domain.TicketStatusInProgress),
		ticket("t2", domain.TicketStatusInProgress),
		ticket("t3", domain.TicketStatusInProgress),
		ticket("t4", domain.TicketStatusDone),
		ticket("t5", domain.TicketStatusDone),
	)

	outcome, err := f.bulk.Move(context.Background(), []string{"t1", "t2", "t3", "t4", "t5"}, domain.TicketStatusTodo)
	require.NoError(t, err)

	assert.Equal(t, OutcomePartial, outcome.Kind)
	assert.Equal(t, 3, outcome.SuccessCount)
	assert.Equal(t, 2, outcome.FailCount)
	assert.Equal(t, 5, outcome.SuccessCount+outcome.FailCount)
	assert.Equal(t, []string{"t4", "t5"}, outcome.FailedIDs())
	for _, r := range outcome.Results {
		if !r.Success {
			assert.NotEmpty(t, r.Reason)
		}
	}
	assert.Equal(t, []string{"t1", "t2", "t3"}, f.gateway.lastBulkIDs, "ineligible tickets are not sent")

	cache := f.engine.Cache()
	for _, id := range []string{"t1", "t2", "t3"} {
		view, _ := cache.Ticket(id)
		assert.Equal(t, domain.TicketStatusTodo, view.Status, id)
	}
	for _, id := range []string{"t4", "t5"} {
		view, _ := cache.Ticket(id)
		assert.Equal(t, domain.TicketStatusDone, view.Status, id)
	}
	assert.Equal(t, 3, cache.Stats().ByStatus[domain.TicketStatusTodo])
	assert.Zero(t, cache.Pending())

	notes := f.notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, OutcomePartial, notes[0].Kind)
	assert.Contains(t, notes[0].Message, "3 of 5")
}

func TestBulkAppliesOnlyServerSuccesses(t *testing.T) {
	f := newFixture(t, owner,
		ticket("t1", domain.TicketStatusInProgress),
		ticket("t2", domain.TicketStatusInProgress),
		ticket("t3", domain.TicketStatusInProgress),
	)
	// t2 was completed by someone else after this board loaded.
	f.gateway.set(ticket("t2", domain.TicketStatusDone))

	outcome, err := f.bulk.Move(context.Background(), []string{"t1", "t2", "t3"}, domain.TicketStatusTodo)
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, outcome.Kind)
	assert.Equal(t, []string{"t2"}, outcome.FailedIDs())

	view, _ := f.engine.Cache().Ticket("t2")
	assert.NotEqual(t, domain.TicketStatusTodo, view.Status)
	view, _ = f.engine.Cache().Ticket("t1")
	assert.Equal(t, domain.TicketStatusTodo, view.Status)
}

func TestBulkWithNoEligibleTicketsSkipsNetwork(t *testing.T) {
	f := newFixture(t, owner, ticket("t1", domain.TicketStatusDone), ticket("t2", domain.TicketStatusDone))

	outcome, err := f.bulk.Move(context.Background(), []string{"t1", "t2"}, domain.TicketStatusTodo)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Equal(t, 2, outcome.FailCount)
	_, _, bulks := f.gateway.calls()
	assert.Zero(t, bulks)
	assert.Contains(t, outcome.Message, "None of the 2")
}

func TestBulkRequeueRespectsLedger(t *testing.T) {
	f := newFixture(t, owner,
		ticket("fresh", domain.TicketStatusInProgress),
		withRevisions(ticket("worked", domain.TicketStatusInProgress), 2),
		ticket("already", domain.TicketStatusTodo),
	)

	outcome, err := f.bulk.Move(context.Background(), []string{"fresh", "worked", "already"}, domain.TicketStatusTodo)
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, outcome.Kind)
	assert.Equal(t, []string{"worked"}, outcome.FailedIDs())
	assert.Equal(t, []string{"fresh"}, f.gateway.lastBulkIDs, "same-status tickets succeed locally")
	assert.Equal(t, 2, outcome.SuccessCount)
}

func TestBulkDeniedForMember(t *testing.T) {
	f := newFixture(t, member, ticket("t1", domain.TicketStatusInReview))

	outcome, err := f.bulk.Move(context.Background(), []string{"t1"}, domain.TicketStatusDone)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	require.Len(t, outcome.Results, 1)
	assert.Contains(t, outcome.Results[0].Reason, "insufficient permission")
	_, _, bulks := f.gateway.calls()
	assert.Zero(t, bulks)
}

func TestBulkDedupesAndCountsEverySelection(t *testing.T) {
	f := newFixture(t, owner, ticket("t1", domain.TicketStatusInProgress))

	outcome, err := f.bulk.Move(context.Background(), []string{"t1", " t1 ", "ghost", ""}, domain.TicketStatusTodo)
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost", "t1"}, outcome.TicketIDs)
	assert.Equal(t, 2, outcome.SuccessCount+outcome.FailCount)
	assert.Equal(t, []string{"ghost"}, outcome.FailedIDs())
	assert.Equal(t, []string{"ghost", "t1"}, f.gateway.lastBulkIDs, "uncached tickets are left to the server")
}

func TestBulkEmptySelectionIsDenied(t *testing.T) {
	f := newFixture(t, owner)
	outcome, err := f.bulk.Move(context.Background(), nil, domain.TicketStatusTodo)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDenied, outcome.Kind)
	assert.Equal(t, FailureValidation, outcome.Failure)
}

func TestBulkTransportErrorDiscardsAndReloads(t *testing.T) {
	f := newFixture(t, owner, ticket("t1", domain.TicketStatusInProgress), ticket("t2", domain.TicketStatusInProgress))
	f.gateway.bulkFn = func(context.Context, []string, domain.TicketStatus) (BulkResult, error) {
		return BulkResult{}, errors.New("connection reset by peer")
	}

	outcome, err := f.bulk.Move(context.Background(), []string{"t1", "t2"}, domain.TicketStatusTodo)
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Equal(t, FailureTransport, outcome.Failure)
	assert.Zero(t, f.engine.Cache().Pending())
	for _, id := range []string{"t1", "t2"} {
		view, _ := f.engine.Cache().Ticket(id)
		assert.Equal(t, domain.TicketStatusInProgress, view.Status)
	}
	boards, _, _ := f.gateway.calls()
	assert.Equal(t, 2, boards)
}

func TestBulkAllSucceeded(t *testing.T) {
	f := newFixture(t, creative, ticket("t1", domain.TicketStatusTodo), ticket("t2", domain.TicketStatusTodo))

	outcome, err := f.bulk.Move(context.Background(), []string{"t1", "t2"}, domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome.Kind)
	assert.Equal(t, "Moved 2 tickets to In Progress", outcome.Message)
	assert.Equal(t, 2, f.engine.Cache().Stats().ByStatus[domain.TicketStatusInProgress])
}
