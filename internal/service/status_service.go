package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/events"
	"github.com/spec-kit/creative-board/internal/repository"
	"github.com/spec-kit/creative-board/internal/workflow"
	apperrors "github.com/spec-kit/creative-board/pkg/util/errorutil"
)

// MaxBulkTickets bounds a single bulk status request.
const MaxBulkTickets = 200

// ChangeStatusInput is an authoritative single-ticket status change.
type ChangeStatusInput struct {
	TicketID        string
	TargetStatus    domain.TicketStatus
	FeedbackMessage string
	CreativeMessage string
	// Assets are registered on the revision created by a submission, in order.
	Assets []domain.AssetRef
}

// ChangeStatusResult carries the canonical ticket and stats after a change.
type ChangeStatusResult struct {
	Ticket   domain.Ticket
	Stats    domain.BoardStats
	Revision *domain.Revision
	Changed  bool
}

// BulkChangeInput moves a set of tickets to one status.
type BulkChangeInput struct {
	TicketIDs    []string
	TargetStatus domain.TicketStatus
}

// BulkItemResult is the per-ticket outcome of a bulk change.
type BulkItemResult struct {
	TicketID string
	Success  bool
	Reason   string
	Changed  bool
	Ticket   *domain.Ticket
}

// BulkChangeResult aggregates a bulk change.
type BulkChangeResult struct {
	SuccessCount int
	FailCount    int
	Results      []BulkItemResult
	Stats        domain.BoardStats
}

type effectOutcome struct {
	ticket   domain.Ticket
	revision *domain.Revision
	events   []events.Event
}

// ChangeStatus revalidates the move against the locked ticket row and
// commits the status together with its ledger effect.
func (s *WorkflowService) ChangeStatus(ctx context.Context, actor domain.Actor, input ChangeStatusInput) (*ChangeStatusResult, error) {
	if !input.TargetStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid target status", map[string]any{"target_status": input.TargetStatus})
	}
	if err := validateAssetRefs(input.Assets); err != nil {
		return nil, err
	}
	caps := s.resolver.For(actor)
	payload := workflow.Payload{FeedbackMessage: input.FeedbackMessage, CreativeMessage: input.CreativeMessage}

	var outcome effectOutcome
	changed := false
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, input.TicketID)
		if err != nil {
			return ticketLookupError(err, input.TicketID)
		}
		if !visibleTo(actor, *ticket) {
			return ticketNotFound(input.TicketID)
		}

		req := workflow.Request{From: ticket.Status, To: input.TargetStatus, Actor: actor.Kind, Capabilities: caps}
		decision := workflow.CheckPayload(workflow.Decide(req), payload)
		if decision.Denied() {
			return decisionError(decision, ticket.Status, input.TargetStatus)
		}
		if decision.Effect == workflow.EffectNone {
			outcome.ticket = *ticket
			return nil
		}
		if len(input.Assets) > 0 && decision.Effect != workflow.EffectSubmit {
			return apperrors.NewValidationError("assets can only be attached when submitting for review", nil)
		}

		outcome, err = s.applyTransition(ctx, tx, actor, *ticket, input.TargetStatus, decision, payload, input.Assets)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	for _, event := range outcome.events {
		s.publishEvent(ctx, event)
	}
	stats, err := s.stats(ctx, actor)
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("ticket status changed",
			zap.String("ticket_id", outcome.ticket.ID),
			zap.String("actor_id", actor.ID),
			zap.String("status", string(outcome.ticket.Status)))
	}
	return &ChangeStatusResult{
		Ticket:   outcome.ticket,
		Stats:    stats,
		Revision: outcome.revision,
		Changed:  changed,
	}, nil
}

// BulkChangeStatus moves each ticket in its own transaction so one failure
// does not undo the others. Every ticket is revalidated against its stored
// status, never a caller-cached one.
func (s *WorkflowService) BulkChangeStatus(ctx context.Context, actor domain.Actor, input BulkChangeInput) (*BulkChangeResult, error) {
	if !input.TargetStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid target status", map[string]any{"target_status": input.TargetStatus})
	}
	ids := normalizeIDs(input.TicketIDs)
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("at least one ticket id is required", map[string]any{"field": "ticketIds"})
	}
	if len(ids) > MaxBulkTickets {
		return nil, apperrors.NewValidationError("too many tickets in one bulk request", map[string]any{"max": MaxBulkTickets})
	}
	caps := s.resolver.For(actor)

	result := &BulkChangeResult{Results: make([]BulkItemResult, 0, len(ids))}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := s.bulkOne(ctx, actor, caps, id, input.TargetStatus)
		if item.Success {
			result.SuccessCount++
		} else {
			result.FailCount++
		}
		result.Results = append(result.Results, item)
	}

	stats, err := s.stats(ctx, actor)
	if err != nil {
		return nil, err
	}
	result.Stats = stats
	s.logger.Info("bulk status change",
		zap.String("actor_id", actor.ID),
		zap.String("target_status", string(input.TargetStatus)),
		zap.Int("success_count", result.SuccessCount),
		zap.Int("fail_count", result.FailCount))
	return result, nil
}

func (s *WorkflowService) bulkOne(ctx context.Context, actor domain.Actor, caps workflow.Capabilities, ticketID string, target domain.TicketStatus) BulkItemResult {
	item := BulkItemResult{TicketID: ticketID}
	var outcome effectOutcome
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return ticketLookupError(err, ticketID)
		}
		if !visibleTo(actor, *ticket) {
			return ticketNotFound(ticketID)
		}
		req := workflow.Request{From: ticket.Status, To: target, Actor: actor.Kind, Capabilities: caps}
		decision := workflow.DecideBulk(req, ticket.RevisionCount)
		if decision.Denied() {
			return decisionError(decision, ticket.Status, target)
		}
		if decision.Effect == workflow.EffectNone {
			outcome.ticket = *ticket
			return nil
		}
		outcome, err = s.applyTransition(ctx, tx, actor, *ticket, target, decision, workflow.Payload{}, nil)
		if err != nil {
			return err
		}
		item.Changed = true
		return nil
	})
	if err != nil {
		item.Changed = false
		item.Reason = bulkReason(err)
		if !isDomainError(err) {
			s.logger.Error("bulk status change failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
		return item
	}

	item.Success = true
	ticket := outcome.ticket
	item.Ticket = &ticket
	for _, event := range outcome.events {
		if payload, ok := event.Payload.(events.TicketStatusChangedPayload); ok {
			payload.Bulk = true
			event.Payload = payload
		}
		s.publishEvent(ctx, event)
	}
	return item
}

// applyTransition performs the ledger effect of an allowed decision and the
// status write inside tx, then re-reads the canonical ticket.
func (s *WorkflowService) applyTransition(
	ctx context.Context,
	tx repository.Store,
	actor domain.Actor,
	ticket domain.Ticket,
	target domain.TicketStatus,
	decision workflow.Decision,
	payload workflow.Payload,
	assets []domain.AssetRef,
) (effectOutcome, error) {
	var out effectOutcome
	base := events.Event{CompanyID: ticket.CompanyID, TicketID: ticket.ID, Actor: eventActor(actor)}
	now := s.now()

	switch decision.Effect {
	case workflow.EffectSubmit:
		revision := &domain.Revision{
			TicketID:        ticket.ID,
			SubmittedByID:   actor.ID,
			SubmittedAt:     now,
			CreativeMessage: optionalText(payload.CreativeMessage),
		}
		if err := tx.Revisions().Create(ctx, revision); err != nil {
			return out, err
		}
		for _, ref := range assets {
			asset := &domain.RevisionAsset{
				RevisionID: revision.ID,
				StorageKey: ref.StorageKey,
				FileName:   ref.FileName,
				MimeType:   ref.MimeType,
				SizeBytes:  ref.SizeBytes,
			}
			if err := tx.Assets().Create(ctx, asset); err != nil {
				return out, err
			}
			revision.Assets = append(revision.Assets, *asset)
		}
		out.revision = revision
		event := base
		event.Type = events.EventRevisionSubmitted
		event.Payload = events.RevisionSubmittedPayload{
			RevisionID:      revision.ID,
			Version:         revision.Version,
			AssetCount:      len(revision.Assets),
			CreativeMessage: revision.CreativeMessage,
		}
		out.events = append(out.events, event)

	case workflow.EffectRequestChanges:
		open, err := openRevision(ctx, tx, ticket.ID)
		if err != nil {
			return out, err
		}
		message := strings.TrimSpace(payload.FeedbackMessage)
		if err := tx.Revisions().RecordFeedback(ctx, open.ID, message, now); err != nil {
			if errors.Is(err, repository.ErrRevisionClosed) {
				return out, apperrors.NewConflict("the current revision already has feedback", map[string]any{"revision_id": open.ID})
			}
			return out, err
		}
		open.FeedbackAt = &now
		open.FeedbackMessage = &message
		out.revision = open
		event := base
		event.Type = events.EventChangesRequested
		event.Payload = events.ChangesRequestedPayload{
			RevisionID:      open.ID,
			Version:         open.Version,
			FeedbackPreview: preview(message),
		}
		out.events = append(out.events, event)

	case workflow.EffectApprove:
		open, err := openRevision(ctx, tx, ticket.ID)
		if err != nil {
			return out, err
		}
		out.revision = open
		event := base
		event.Type = events.EventTicketApproved
		event.Payload = events.TicketApprovedPayload{RevisionID: open.ID, Version: open.Version}
		out.events = append(out.events, event)
	}

	if err := tx.Tickets().UpdateStatus(ctx, ticket.ID, target); err != nil {
		return out, err
	}
	updated, err := tx.Tickets().GetByID(ctx, ticket.ID)
	if err != nil {
		return out, err
	}
	out.ticket = *updated

	event := base
	event.Type = events.EventTicketStatusChanged
	event.Payload = events.TicketStatusChangedPayload{OldStatus: ticket.Status, NewStatus: updated.Status}
	out.events = append([]events.Event{event}, out.events...)
	return out, nil
}

// openRevision returns the latest revision, which must still await feedback.
func openRevision(ctx context.Context, tx repository.Store, ticketID string) (*domain.Revision, error) {
	latest, err := tx.Revisions().Latest(ctx, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewConflict("nothing has been submitted for review on this ticket", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return nil, err
	}
	if latest.HasFeedback() {
		return nil, apperrors.NewConflict("the current revision already has feedback", map[string]any{"revision_id": latest.ID})
	}
	return latest, nil
}

func validateAssetRefs(assets []domain.AssetRef) error {
	for i, asset := range assets {
		if strings.TrimSpace(asset.StorageKey) == "" || strings.TrimSpace(asset.FileName) == "" {
			return apperrors.NewValidationError("asset storage key and file name are required", map[string]any{"index": i})
		}
		if asset.SizeBytes < 0 {
			return apperrors.NewValidationError("asset size cannot be negative", map[string]any{"index": i})
		}
	}
	return nil
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func bulkReason(err error) string {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "the ticket could not be updated"
}

func isDomainError(err error) bool {
	var domainErr *apperrors.DomainError
	return errors.As(err, &domainErr)
}

func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func preview(message string) string {
	const limit = 120
	runes := []rune(message)
	if len(runes) <= limit {
		return message
	}
	return string(runes[:limit]) + "…"
}
