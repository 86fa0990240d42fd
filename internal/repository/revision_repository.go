package repository

import (
	"context"
	"time"

	"github.com/spec-kit/creative-board/internal/domain"
)

// RevisionRepository is the append-only review ledger. Versions are assigned
// by the database as one past the ticket's highest version.
type RevisionRepository interface {
	Create(ctx context.Context, revision *domain.Revision) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Revision, error)
	Latest(ctx context.Context, ticketID string) (*domain.Revision, error)
	RecordFeedback(ctx context.Context, revisionID, message string, at time.Time) error
}

type revisionRepository struct {
	db DBTX
}

const revisionColumns = `
        SELECT id, ticket_id, version, submitted_by_id, submitted_at, feedback_at, feedback_message, creative_message
        FROM revisions`

func (r *revisionRepository) Create(ctx context.Context, revision *domain.Revision) error {
	const query = `
        INSERT INTO revisions (ticket_id, version, submitted_by_id, submitted_at, creative_message)
        VALUES ($1, (SELECT COALESCE(MAX(version), 0) + 1 FROM revisions WHERE ticket_id = $1), $2, $3, $4)
        RETURNING id, version`
	return r.db.QueryRow(ctx, query,
		revision.TicketID,
		revision.SubmittedByID,
		revision.SubmittedAt,
		revision.CreativeMessage,
	).Scan(&revision.ID, &revision.Version)
}

func (r *revisionRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Revision, error) {
	rows, err := r.db.Query(ctx, revisionColumns+` WHERE ticket_id=$1 ORDER BY version ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Revision
	for rows.Next() {
		var revision domain.Revision
		if err := rows.Scan(
			&revision.ID,
			&revision.TicketID,
			&revision.Version,
			&revision.SubmittedByID,
			&revision.SubmittedAt,
			&revision.FeedbackAt,
			&revision.FeedbackMessage,
			&revision.CreativeMessage,
		); err != nil {
			return nil, err
		}
		result = append(result, revision)
	}
	return result, rows.Err()
}

func (r *revisionRepository) Latest(ctx context.Context, ticketID string) (*domain.Revision, error) {
	var revision domain.Revision
	if err := r.db.QueryRow(ctx, revisionColumns+` WHERE ticket_id=$1 ORDER BY version DESC LIMIT 1`, ticketID).Scan(
		&revision.ID,
		&revision.TicketID,
		&revision.Version,
		&revision.SubmittedByID,
		&revision.SubmittedAt,
		&revision.FeedbackAt,
		&revision.FeedbackMessage,
		&revision.CreativeMessage,
	); err != nil {
		return nil, err
	}
	return &revision, nil
}

func (r *revisionRepository) RecordFeedback(ctx context.Context, revisionID, message string, at time.Time) error {
	const query = `
        UPDATE revisions SET feedback_at=$1, feedback_message=$2
        WHERE id=$3 AND feedback_at IS NULL`
	cmd, err := r.db.Exec(ctx, query, at, message, revisionID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRevisionClosed
	}
	return nil
}
