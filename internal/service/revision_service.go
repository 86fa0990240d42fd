package service

import (
	"context"

	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/events"
	"github.com/spec-kit/creative-board/internal/repository"
	"github.com/spec-kit/creative-board/internal/workflow"
	apperrors "github.com/spec-kit/creative-board/pkg/util/errorutil"
)

// ListRevisions returns a ticket's ledger ordered by version with assets.
func (s *WorkflowService) ListRevisions(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Revision, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, apperrors.MapError(err)
	}
	revisions, err := s.store.Revisions().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.attachAssets(ctx, s.store, revisions); err != nil {
		return nil, err
	}
	workflow.SortByVersion(revisions)
	return revisions, nil
}

// AttachAssets registers further files on the ticket's current open revision.
// Only the assigned creative may do so, and only while the ticket is in review.
func (s *WorkflowService) AttachAssets(ctx context.Context, actor domain.Actor, ticketID, revisionID string, assets []domain.AssetRef) (*domain.Revision, error) {
	if !actor.IsCreative() {
		return nil, apperrors.NewForbidden("insufficient permission: only the assigned creative can attach assets")
	}
	if len(assets) == 0 {
		return nil, apperrors.NewValidationError("at least one asset is required", map[string]any{"field": "assets"})
	}
	if err := validateAssetRefs(assets); err != nil {
		return nil, err
	}

	var revision *domain.Revision
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return ticketLookupError(err, ticketID)
		}
		if !visibleTo(actor, *ticket) {
			return ticketNotFound(ticketID)
		}
		if ticket.Status != domain.TicketStatusInReview {
			return apperrors.NewConflict("assets can only be added while the ticket is in review", map[string]any{"status": ticket.Status})
		}
		open, err := openRevision(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if open.ID != revisionID {
			return apperrors.NewConflict("only the current revision accepts new assets", map[string]any{
				"revision_id":         revisionID,
				"current_revision_id": open.ID,
			})
		}
		for _, ref := range assets {
			asset := &domain.RevisionAsset{
				RevisionID: open.ID,
				StorageKey: ref.StorageKey,
				FileName:   ref.FileName,
				MimeType:   ref.MimeType,
				SizeBytes:  ref.SizeBytes,
			}
			if err := tx.Assets().Create(ctx, asset); err != nil {
				return err
			}
		}
		list := []domain.Revision{*open}
		if err := s.attachAssets(ctx, tx, list); err != nil {
			return err
		}
		revision = &list[0]
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRevisionAssetsAdded,
		CompanyID: actor.CompanyID,
		TicketID:  ticketID,
		Actor:     eventActor(actor),
		Payload:   events.RevisionAssetsAddedPayload{RevisionID: revision.ID, Added: len(assets)},
	})
	return revision, nil
}

func (s *WorkflowService) attachAssets(ctx context.Context, store repository.Store, revisions []domain.Revision) error {
	if len(revisions) == 0 {
		return nil
	}
	ids := make([]string, 0, len(revisions))
	for _, rev := range revisions {
		ids = append(ids, rev.ID)
	}
	byRevision, err := store.Assets().ListByRevisions(ctx, ids)
	if err != nil {
		return apperrors.MapError(err)
	}
	for i := range revisions {
		revisions[i].Assets = byRevision[revisions[i].ID]
	}
	return nil
}
