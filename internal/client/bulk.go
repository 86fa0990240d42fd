package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/workflow"
)

// BulkCoordinator moves a selection of tickets to one status.
type BulkCoordinator struct {
	engine *Engine
}

// NewBulkCoordinator constructs the coordinator.
func NewBulkCoordinator(engine *Engine) *BulkCoordinator {
	return &BulkCoordinator{engine: engine}
}

// Move pre-validates every selected ticket against the cache, sends only the
// eligible ones, and applies the target status locally only to tickets the
// server reports successful. Counts always cover the whole selection.
func (b *BulkCoordinator) Move(ctx context.Context, ticketIDs []string, target domain.TicketStatus) (Outcome, error) {
	e := b.engine
	ids := dedupeIDs(ticketIDs)
	outcome := Outcome{
		Operation: operationBulkMove,
		TicketIDs: ids,
		Target:    target,
	}
	if len(ids) == 0 {
		outcome.Kind = OutcomeDenied
		outcome.Failure = FailureValidation
		outcome.Message = "Select at least one ticket to move"
		e.notifier.Notify(ctx, outcome)
		return outcome, nil
	}

	results := make(map[string]ItemResult, len(ids))
	var eligible []string
	for _, id := range ids {
		ticket, ok := e.cache.Ticket(id)
		if !ok {
			// The server decides for tickets this view has not loaded.
			eligible = append(eligible, id)
			continue
		}
		decision := workflow.DecideBulk(e.request(ticket.Status, target), ticket.RevisionCount)
		switch {
		case decision.Denied():
			results[id] = ItemResult{TicketID: id, Reason: decision.Reason}
		case decision.Effect == workflow.EffectNone:
			results[id] = ItemResult{TicketID: id, Success: true}
		default:
			eligible = append(eligible, id)
		}
	}

	if len(eligible) > 0 {
		if err := b.send(ctx, eligible, target, results); err != nil {
			if errors.Is(err, ErrStale) {
				outcome.Kind = OutcomeCancelled
				outcome.Message = "Bulk move was cancelled"
				return outcome, err
			}
			e.reloadAfterFailure(ctx, "bulk move failed")
			outcome.Kind = OutcomeFailed
			outcome.Failure = FailureOf(err)
			outcome.Message = failureMessage(err)
			e.notifier.Notify(ctx, outcome)
			return outcome, err
		}
	}

	outcome.Results = make([]ItemResult, 0, len(ids))
	for _, id := range ids {
		r := results[id]
		outcome.Results = append(outcome.Results, r)
		if r.Success {
			outcome.SuccessCount++
		} else {
			outcome.FailCount++
		}
	}
	switch {
	case outcome.FailCount == 0:
		outcome.Kind = OutcomeSucceeded
	case outcome.SuccessCount == 0:
		outcome.Kind = OutcomeFailed
	default:
		outcome.Kind = OutcomePartial
	}
	outcome.Message = bulkMessage(outcome.SuccessCount, len(ids), target)
	if outcome.FailCount > 0 {
		outcome.Message += ": " + failureSummary(outcome.Results)
	}
	e.notifier.Notify(ctx, outcome)
	return outcome, nil
}

// send issues the server request for eligible ids and reconciles the cache.
// It fills results for every eligible id.
func (b *BulkCoordinator) send(ctx context.Context, eligible []string, target domain.TicketStatus, results map[string]ItemResult) error {
	e := b.engine
	tokens := make(map[string]Token, len(eligible))
	for _, id := range eligible {
		if tok, ok := e.cache.Speculate(id, target); ok {
			tokens[id] = tok
		}
	}
	discardAll := func() {
		for _, tok := range tokens {
			e.cache.Discard(tok)
		}
	}

	reqCtx, gen := e.tracker.Begin(ctx, "bulk:"+uuid.NewString())
	resp, err := e.gateway.BulkChangeStatus(reqCtx, eligible, target)
	if err != nil {
		current := e.tracker.Current(gen)
		e.tracker.Finish(gen)
		discardAll()
		if !current || errors.Is(err, context.Canceled) {
			return ErrStale
		}
		return err
	}

	committed := e.tracker.Commit(gen, func() {
		reported := make(map[string]BulkItem, len(resp.Results))
		for _, item := range resp.Results {
			reported[item.TicketID] = item
		}
		for _, id := range eligible {
			item, ok := reported[id]
			tok, speculated := tokens[id]
			switch {
			case !ok:
				results[id] = ItemResult{TicketID: id, Reason: "the server did not report a result for this ticket"}
				if speculated {
					e.cache.Discard(tok)
				}
			case !item.Success:
				results[id] = ItemResult{TicketID: id, Reason: item.Reason}
				if speculated {
					e.cache.Discard(tok)
				}
			default:
				results[id] = ItemResult{TicketID: id, Success: true, Changed: item.Changed}
				if !speculated {
					continue
				}
				if item.Ticket != nil {
					e.cache.Confirm(tok, *item.Ticket)
				} else {
					e.cache.ConfirmStatus(tok, target)
				}
			}
		}
	})
	if !committed {
		discardAll()
		return ErrStale
	}
	if !e.cache.ConfirmedStats().Equal(resp.Stats) {
		e.reloadAfterFailure(ctx, "stats mismatch")
	}
	return nil
}

func dedupeIDs(ids []string) []string {
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

// failureSummary groups failed tickets by reason for the notification.
func failureSummary(results []ItemResult) string {
	byReason := map[string]int{}
	var order []string
	for _, r := range results {
		if r.Success {
			continue
		}
		if _, ok := byReason[r.Reason]; !ok {
			order = append(order, r.Reason)
		}
		byReason[r.Reason]++
	}
	parts := make([]string, 0, len(order))
	for _, reason := range order {
		if byReason[reason] == 1 {
			parts = append(parts, reason)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (x%d)", reason, byReason[reason]))
	}
	return strings.Join(parts, "; ")
}
