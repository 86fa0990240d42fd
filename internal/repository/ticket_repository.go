package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/creative-board/internal/domain"
)

// TicketFilter scopes board listings.
type TicketFilter struct {
	CompanyID          string
	AssignedCreativeID *string
	Statuses           []domain.TicketStatus
	IDs                []string
}

// TicketRepository encapsulates ticket persistence. Revision-derived fields
// (RevisionCount, LatestRevisionHasFeedback) are computed on read.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetForUpdate locks the ticket row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error
	UpdateAssignee(ctx context.Context, id string, creativeID *string) error
}

type ticketRepository struct {
	db DBTX
}

const ticketColumns = `
        SELECT t.id, t.company_id, t.project_id, p.code, t.company_ticket_number, t.title, t.description,
               t.status, t.priority, t.created_by_id, t.assigned_creative_id,
               (SELECT COUNT(*) FROM revisions r WHERE r.ticket_id = t.id),
               COALESCE((SELECT r.feedback_at IS NOT NULL FROM revisions r
                         WHERE r.ticket_id = t.id ORDER BY r.version DESC LIMIT 1), FALSE),
               t.created_at, t.updated_at
        FROM tickets t
        LEFT JOIN projects p ON p.id = t.project_id`

// Create inserts a ticket with the company's next ticket number. Numbering is
// serialized per company by a transaction-scoped advisory lock, so Create must
// run inside Store.WithinTx.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "ticket_number:"+ticket.CompanyID); err != nil {
		return fmt.Errorf("lock ticket numbering: %w", err)
	}
	const query = `
        INSERT INTO tickets (company_id, project_id, company_ticket_number, title, description, status, priority, created_by_id, assigned_creative_id)
        VALUES ($1, $2, (SELECT COALESCE(MAX(company_ticket_number), 0) + 1 FROM tickets WHERE company_id = $1), $3, $4, $5, $6, $7, $8)
        RETURNING id, company_ticket_number, created_at, updated_at`
	var number int
	if err := r.db.QueryRow(ctx, query,
		ticket.CompanyID,
		ticket.ProjectID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedByID,
		ticket.AssignedCreativeID,
	).Scan(&ticket.ID, &number, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}
	ticket.CompanyTicketNumber = &number
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, ticketColumns+` WHERE t.id = $1`, id)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, ticketColumns+` WHERE t.id = $1 FOR UPDATE OF t`, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pgx.ErrNoRows
	}
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"t.company_id = $1"}
	args := []any{filter.CompanyID}

	if filter.AssignedCreativeID != nil {
		args = append(args, *filter.AssignedCreativeID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_creative_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		clauses = append(clauses, fmt.Sprintf("t.id = ANY($%d::uuid[])", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.updated_at DESC, t.id`, ticketColumns, strings.Join(clauses, " AND "))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdateAssignee(ctx context.Context, id string, creativeID *string) error {
	const query = `UPDATE tickets SET assigned_creative_id=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, creativeID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var ticket domain.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.CompanyID,
		&ticket.ProjectID,
		&ticket.ProjectCode,
		&ticket.CompanyTicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedByID,
		&ticket.AssignedCreativeID,
		&ticket.RevisionCount,
		&ticket.LatestRevisionHasFeedback,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	return ticket, err
}
