package client

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/workflow"
)

// MoveRequest is a single-ticket gesture: a drag, a button or a form.
type MoveRequest struct {
	TicketID        string
	Target          domain.TicketStatus
	FeedbackMessage string
	CreativeMessage string
	// Assets are already stored; Files are uploaded first through the
	// AssetUploader. Both only apply when submitting for review.
	Assets []domain.AssetRef
	Files  []File
}

// MutationCoordinator validates, speculates, sends and reconciles one move.
type MutationCoordinator struct {
	engine   *Engine
	uploader AssetUploader
}

// NewMutationCoordinator constructs the coordinator; uploader may be nil
// when the caller never sends files.
func NewMutationCoordinator(engine *Engine, uploader AssetUploader) *MutationCoordinator {
	return &MutationCoordinator{engine: engine, uploader: uploader}
}

// Move runs validate, speculate, send, reconcile in order. Denials and
// no-ops never reach the network. The returned error is non-nil only when
// the server call failed or was cancelled.
func (m *MutationCoordinator) Move(ctx context.Context, req MoveRequest) (Outcome, error) {
	e := m.engine
	outcome := Outcome{
		Operation: operationMove,
		TicketIDs: []string{req.TicketID},
		Target:    req.Target,
	}

	ticket, ok := e.cache.Ticket(req.TicketID)
	if !ok {
		outcome.Kind = OutcomeFailed
		outcome.Failure = FailureNotFound
		outcome.Message = "This ticket is not on your board; reload and try again"
		e.notifier.Notify(ctx, outcome)
		return outcome, nil
	}

	decision := workflow.CheckPayload(
		workflow.Decide(e.request(ticket.Status, req.Target)),
		workflow.Payload{FeedbackMessage: req.FeedbackMessage, CreativeMessage: req.CreativeMessage},
	)
	if decision.Denied() {
		outcome.Kind = OutcomeDenied
		outcome.Failure = denialFailure(decision.Denial)
		outcome.Message = decision.Reason
		e.notifier.Notify(ctx, outcome)
		return outcome, nil
	}
	if decision.Effect == workflow.EffectNone {
		outcome.Kind = OutcomeNoOp
		outcome.Ticket = &ticket
		outcome.Message = fmt.Sprintf("%s is already in %s", ticket.DisplayCode(), ticket.Status.Label())
		return outcome, nil
	}

	if decision.Effect != workflow.EffectSubmit && len(req.Assets)+len(req.Files) > 0 {
		outcome.Kind = OutcomeDenied
		outcome.Failure = FailureValidation
		outcome.Message = "files can only be attached when submitting work for review"
		e.notifier.Notify(ctx, outcome)
		return outcome, nil
	}

	assets := append([]domain.AssetRef(nil), req.Assets...)
	if len(req.Files) > 0 {
		uploaded, err := m.upload(ctx, req.TicketID, req.Files)
		if err != nil {
			outcome.Kind = OutcomeFailed
			outcome.Failure = FailureUpload
			outcome.Message = fmt.Sprintf("Upload failed, %s was not submitted: %v", ticket.DisplayCode(), err)
			e.notifier.Notify(ctx, outcome)
			return outcome, err
		}
		assets = append(assets, uploaded...)
	}

	tok, _ := e.cache.Speculate(req.TicketID, req.Target)
	reqCtx, gen := e.tracker.Begin(ctx, moveKey(req.TicketID))
	result, err := e.gateway.ChangeStatus(reqCtx, StatusChange{
		TicketID:        req.TicketID,
		Target:          req.Target,
		FeedbackMessage: req.FeedbackMessage,
		CreativeMessage: req.CreativeMessage,
		Assets:          assets,
	})
	if err != nil {
		current := e.tracker.Current(gen)
		e.tracker.Finish(gen)
		e.cache.Discard(tok)
		if !current || errors.Is(err, context.Canceled) {
			outcome.Kind = OutcomeCancelled
			outcome.Message = fmt.Sprintf("Move of %s was cancelled", ticket.DisplayCode())
			return outcome, ErrStale
		}
		e.reloadAfterFailure(ctx, "move failed")
		outcome.Kind = OutcomeFailed
		outcome.Failure = FailureOf(err)
		outcome.Message = failureMessage(err)
		e.notifier.Notify(ctx, outcome)
		return outcome, err
	}

	var adopted bool
	committed := e.tracker.Commit(gen, func() {
		adopted = e.cache.Confirm(tok, result.Ticket)
	})
	if !committed {
		e.cache.Discard(tok)
		outcome.Kind = OutcomeCancelled
		outcome.Message = fmt.Sprintf("Move of %s was cancelled", ticket.DisplayCode())
		return outcome, ErrStale
	}
	if !adopted {
		e.logger.Debug("ignored stale move response", zap.String("ticket_id", req.TicketID))
	}
	if !e.cache.ConfirmedStats().Equal(result.Stats) {
		e.reloadAfterFailure(ctx, "stats mismatch")
	}

	outcome.Kind = OutcomeSucceeded
	outcome.Ticket = &result.Ticket
	outcome.RevisionID = result.RevisionID
	outcome.Message = fmt.Sprintf("Moved %s to %s", result.Ticket.DisplayCode(), req.Target.Label())
	e.notifier.Notify(ctx, outcome)
	return outcome, nil
}

// Cancel abandons the in-flight move for a ticket; its response is ignored.
func (m *MutationCoordinator) Cancel(ticketID string) {
	m.engine.tracker.Cancel(moveKey(ticketID))
}

func (m *MutationCoordinator) upload(ctx context.Context, ticketID string, files []File) ([]domain.AssetRef, error) {
	if m.uploader == nil {
		return nil, errors.New("no asset uploader configured")
	}
	refs := make([]domain.AssetRef, 0, len(files))
	for _, file := range files {
		ref, err := m.uploader.Upload(ctx, ticketID, file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Name, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func moveKey(ticketID string) string {
	return "move:" + ticketID
}
