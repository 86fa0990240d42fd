package client

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/workflow"
	apperrors "github.com/spec-kit/creative-board/pkg/util/errorutil"
)

var (
	creative = domain.Actor{ID: "creative-1", Kind: domain.ActorKindCreative, CompanyID: "company-1"}
	owner    = domain.Actor{ID: "owner-1", Kind: domain.ActorKindCustomer, CompanyID: "company-1", Role: domain.CompanyRoleOwner}
	member   = domain.Actor{ID: "member-1", Kind: domain.ActorKindCustomer, CompanyID: "company-1", Role: domain.CompanyRoleMember}
)

func sessionFor(actor domain.Actor) Session {
	return Session{Actor: actor, Capabilities: workflow.DefaultResolver().For(actor)}
}

// fakeGateway behaves like a minimal server over an in-memory board unless a
// hook overrides a call.
type fakeGateway struct {
	mu      sync.Mutex
	session Session
	tickets map[string]domain.Ticket

	boardCalls    int
	changeCalls   int
	bulkCalls     int
	revisionCalls int
	lastChange    StatusChange
	lastBulkIDs   []string

	boardFn     func(ctx context.Context, snapshot BoardSnapshot) (BoardSnapshot, error)
	changeFn    func(ctx context.Context, change StatusChange) (StatusResult, error)
	bulkFn      func(ctx context.Context, ids []string, target domain.TicketStatus) (BulkResult, error)
	revisionsFn func(ctx context.Context, ticketID string) ([]domain.Revision, error)
}

func newFakeGateway(session Session, tickets ...domain.Ticket) *fakeGateway {
	g := &fakeGateway{session: session, tickets: map[string]domain.Ticket{}}
	for _, t := range tickets {
		g.tickets[t.ID] = t
	}
	return g
}

func (g *fakeGateway) Me(context.Context) (Session, error) {
	return g.session, nil
}

func (g *fakeGateway) Board(ctx context.Context) (BoardSnapshot, error) {
	g.mu.Lock()
	g.boardCalls++
	tickets := g.listLocked()
	hook := g.boardFn
	g.mu.Unlock()
	snapshot := BoardSnapshot{Tickets: tickets, Stats: domain.ComputeStats(tickets)}
	if hook != nil {
		return hook(ctx, snapshot)
	}
	return snapshot, nil
}

func (g *fakeGateway) ChangeStatus(ctx context.Context, change StatusChange) (StatusResult, error) {
	g.mu.Lock()
	g.changeCalls++
	g.lastChange = change
	hook := g.changeFn
	g.mu.Unlock()
	if hook != nil {
		return hook(ctx, change)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	ticket, ok := g.tickets[change.TicketID]
	if !ok {
		return StatusResult{}, apperrors.NewNotFound("ticket", nil)
	}
	result := StatusResult{Changed: ticket.Status != change.Target}
	ticket.Status = change.Target
	if change.Target == domain.TicketStatusInReview {
		ticket.RevisionCount++
		result.RevisionID = "rev-" + ticket.ID
	}
	g.tickets[ticket.ID] = ticket
	result.Ticket = ticket
	result.Stats = domain.ComputeStats(g.listLocked())
	return result, nil
}

func (g *fakeGateway) BulkChangeStatus(ctx context.Context, ids []string, target domain.TicketStatus) (BulkResult, error) {
	g.mu.Lock()
	g.bulkCalls++
	g.lastBulkIDs = append([]string(nil), ids...)
	hook := g.bulkFn
	g.mu.Unlock()
	if hook != nil {
		return hook(ctx, ids, target)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	var result BulkResult
	for _, id := range ids {
		ticket, ok := g.tickets[id]
		switch {
		case !ok:
			result.Results = append(result.Results, BulkItem{TicketID: id, Reason: "ticket not found"})
			result.FailCount++
		case ticket.Status == domain.TicketStatusDone:
			result.Results = append(result.Results, BulkItem{TicketID: id, Reason: "this ticket is already completed and can no longer move"})
			result.FailCount++
		default:
			changed := ticket.Status != target
			ticket.Status = target
			g.tickets[id] = ticket
			copied := ticket
			result.Results = append(result.Results, BulkItem{TicketID: id, Success: true, Changed: changed, Ticket: &copied})
			result.SuccessCount++
		}
	}
	result.Stats = domain.ComputeStats(g.listLocked())
	return result, nil
}

func (g *fakeGateway) Revisions(ctx context.Context, ticketID string) ([]domain.Revision, error) {
	g.mu.Lock()
	g.revisionCalls++
	hook := g.revisionsFn
	g.mu.Unlock()
	if hook != nil {
		return hook(ctx, ticketID)
	}
	return nil, nil
}

func (g *fakeGateway) set(ticket domain.Ticket) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tickets[ticket.ID] = ticket
}

func (g *fakeGateway) calls() (board, change, bulk int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.boardCalls, g.changeCalls, g.bulkCalls
}

func (g *fakeGateway) listLocked() []domain.Ticket {
	out := make([]domain.Ticket, 0, len(g.tickets))
	for _, t := range g.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (n *recordingNotifier) Notify(_ context.Context, outcome Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome)
}

func (n *recordingNotifier) all() []Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Outcome(nil), n.outcomes...)
}

type fixture struct {
	gateway  *fakeGateway
	notifier *recordingNotifier
	engine   *Engine
	moves    *MutationCoordinator
	bulk     *BulkCoordinator
}

func newFixture(t *testing.T, actor domain.Actor, tickets ...domain.Ticket) *fixture {
	t.Helper()
	gateway := newFakeGateway(sessionFor(actor), tickets...)
	notifier := &recordingNotifier{}
	engine := NewEngine(EngineDependencies{Gateway: gateway, Notifier: notifier, Logger: zap.NewNop()})
	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(engine.Close)
	return &fixture{
		gateway:  gateway,
		notifier: notifier,
		engine:   engine,
		moves:    NewMutationCoordinator(engine, nil),
		bulk:     NewBulkCoordinator(engine),
	}
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func ticket(id string, status domain.TicketStatus) domain.Ticket {
	assignee := creative.ID
	return domain.Ticket{
		ID:                 id,
		CompanyID:          "company-1",
		Title:              "Ticket " + id,
		Status:             status,
		Priority:           domain.TicketPriorityMedium,
		CreatedByID:        owner.ID,
		AssignedCreativeID: &assignee,
		CreatedAt:          baseTime,
		UpdatedAt:          baseTime,
	}
}

func withRevisions(t domain.Ticket, count int) domain.Ticket {
	t.RevisionCount = count
	return t
}
