package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/events"
	"github.com/spec-kit/creative-board/internal/repository"
	"github.com/spec-kit/creative-board/internal/workflow"
	apperrors "github.com/spec-kit/creative-board/pkg/util/errorutil"
)

// WorkflowService is the authoritative side of the board: every status
// change is revalidated against the stored ticket before it is committed.
type WorkflowService struct {
	store      repository.Store
	resolver   *workflow.Resolver
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	Store      repository.Store
	Resolver   *workflow.Resolver
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// BoardView is the viewer's ticket collection and its stats.
type BoardView struct {
	Tickets []domain.Ticket
	Stats   domain.BoardStats
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	ProjectID   *string
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	svc := &WorkflowService{
		store:      deps.Store,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if svc.resolver == nil {
		svc.resolver = workflow.DefaultResolver()
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Capabilities resolves what the actor may do on the board.
func (s *WorkflowService) Capabilities(actor domain.Actor) workflow.Capabilities {
	return s.resolver.For(actor)
}

// Board returns the tickets visible to the actor with stats folded over them.
func (s *WorkflowService) Board(ctx context.Context, actor domain.Actor) (*BoardView, error) {
	tickets, err := s.store.Tickets().List(ctx, scopeFilter(actor))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &BoardView{Tickets: tickets, Stats: domain.ComputeStats(tickets)}, nil
}

// GetTicket fetches a single visible ticket.
func (s *WorkflowService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		return nil, ticketLookupError(err, ticketID)
	}
	if !visibleTo(actor, *ticket) {
		return nil, ticketNotFound(ticketID)
	}
	return ticket, nil
}

const maxCreateAttempts = 3

// CreateTicket opens a new ticket in TODO for the actor's company.
func (s *WorkflowService) CreateTicket(ctx context.Context, actor domain.Actor, input CreateTicketInput) (*domain.Ticket, error) {
	if !actor.IsCustomer() || !s.resolver.For(actor).CanEditTickets {
		return nil, apperrors.NewForbidden("insufficient permission: your role does not allow creating tickets")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		CompanyID:   actor.CompanyID,
		ProjectID:   input.ProjectID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusTodo,
		Priority:    priority,
		CreatedByID: actor.ID,
	}
	var created *domain.Ticket
	var err error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		candidate := *ticket
		err = s.store.WithinTx(ctx, func(tx repository.Store) error {
			if err := tx.Tickets().Create(ctx, &candidate); err != nil {
				return err
			}
			loaded, err := tx.Tickets().GetByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			created = loaded
			return nil
		})
		if !apperrors.HasPgCode(err, apperrors.PgUniqueViolation) {
			break
		}
		s.logger.Warn("ticket number taken, retrying",
			zap.String("company_id", ticket.CompanyID), zap.Int("attempt", attempt))
	}
	if err != nil {
		if apperrors.HasPgCode(err, apperrors.PgUniqueViolation) {
			return nil, apperrors.NewConflict("could not assign a ticket number, try again", nil)
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketCreated,
		CompanyID: created.CompanyID,
		TicketID:  created.ID,
		Actor:     eventActor(actor),
		Payload: events.TicketCreatedPayload{
			Code:     created.DisplayCode(),
			Priority: created.Priority,
			Title:    created.Title,
		},
	})
	return created, nil
}

// AssignCreative sets or clears the creative working on a ticket.
func (s *WorkflowService) AssignCreative(ctx context.Context, actor domain.Actor, ticketID string, creativeID *string) (*domain.Ticket, error) {
	if !actor.IsCustomer() || !s.resolver.For(actor).CanEditTickets {
		return nil, apperrors.NewForbidden("insufficient permission: your role does not allow assigning tickets")
	}
	if creativeID != nil {
		trimmed := strings.TrimSpace(*creativeID)
		if trimmed == "" {
			creativeID = nil
		} else {
			creativeID = &trimmed
		}
	}

	var updated *domain.Ticket
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return ticketLookupError(err, ticketID)
		}
		if !visibleTo(actor, *ticket) {
			return ticketNotFound(ticketID)
		}
		if ticket.Status == domain.TicketStatusDone {
			return apperrors.NewConflict("completed tickets cannot be reassigned", map[string]any{"ticket_id": ticketID})
		}
		if err := tx.Tickets().UpdateAssignee(ctx, ticketID, creativeID); err != nil {
			return err
		}
		updated, err = tx.Tickets().GetByID(ctx, ticketID)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketAssigned,
		CompanyID: updated.CompanyID,
		TicketID:  updated.ID,
		Actor:     eventActor(actor),
		Payload:   events.TicketAssignedPayload{CreativeID: updated.AssignedCreativeID},
	})
	return updated, nil
}

func (s *WorkflowService) stats(ctx context.Context, actor domain.Actor) (domain.BoardStats, error) {
	tickets, err := s.store.Tickets().List(ctx, scopeFilter(actor))
	if err != nil {
		return domain.BoardStats{}, apperrors.MapError(err)
	}
	return domain.ComputeStats(tickets), nil
}

func (s *WorkflowService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// scopeFilter limits creatives to their assigned tickets; customers see the
// whole company board.
func scopeFilter(actor domain.Actor) repository.TicketFilter {
	filter := repository.TicketFilter{CompanyID: actor.CompanyID}
	if actor.IsCreative() {
		id := actor.ID
		filter.AssignedCreativeID = &id
	}
	return filter
}

func visibleTo(actor domain.Actor, ticket domain.Ticket) bool {
	if ticket.CompanyID != actor.CompanyID {
		return false
	}
	if actor.IsCreative() {
		return ticket.AssignedTo(actor.ID)
	}
	return actor.IsCustomer()
}

func ticketNotFound(ticketID string) error {
	return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
}

func ticketLookupError(err error, ticketID string) error {
	if errors.Is(err, pgx.ErrNoRows) || apperrors.HasPgCode(err, apperrors.PgInvalidTextRepresentation) {
		return ticketNotFound(ticketID)
	}
	return err
}

func eventActor(actor domain.Actor) events.Actor {
	return events.Actor{ID: actor.ID, Kind: actor.Kind, Role: actor.Role}
}

// decisionError converts a workflow denial into the matching API error.
func decisionError(decision workflow.Decision, from, to domain.TicketStatus) error {
	details := map[string]any{"from": from, "to": to}
	switch decision.Denial {
	case workflow.DenialUnauthorized:
		return apperrors.NewDomainError(apperrors.CodeForbidden, decision.Reason, http.StatusForbidden, details)
	case workflow.DenialValidation:
		return apperrors.NewValidationError(decision.Reason, details)
	default:
		return apperrors.NewIllegalTransition(decision.Reason, details)
	}
}
