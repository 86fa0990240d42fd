package dto

import (
	"fmt"
	"time"

	"github.com/spec-kit/creative-board/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ProjectID   *string               `json:"project_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// AssignCreativeRequest payload; a null creative_id unassigns.
type AssignCreativeRequest struct {
	CreativeID *string `json:"creative_id"`
}

// TicketResponse is the canonical ticket representation.
type TicketResponse struct {
	ID                        string                `json:"id"`
	Code                      string                `json:"code"`
	CompanyID                 string                `json:"company_id"`
	ProjectID                 *string               `json:"project_id"`
	ProjectCode               *string               `json:"project_code"`
	CompanyTicketNumber       *int                  `json:"company_ticket_number"`
	Title                     string                `json:"title"`
	Description               string                `json:"description"`
	Status                    domain.TicketStatus   `json:"status"`
	Priority                  domain.TicketPriority `json:"priority"`
	CreatedByID               string                `json:"created_by_id"`
	AssignedCreativeID        *string               `json:"assigned_creative_id"`
	RevisionCount             int                   `json:"revision_count"`
	LatestRevisionHasFeedback bool                  `json:"latest_revision_has_feedback"`
	CreatedAt                 time.Time             `json:"created_at"`
	UpdatedAt                 time.Time             `json:"updated_at"`
}

// StatsResponse carries board counts keyed by status and priority.
type StatsResponse struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
}

// BoardResponse is the viewer's board.
type BoardResponse struct {
	Tickets []TicketResponse `json:"tickets"`
	Stats   StatsResponse    `json:"stats"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                        t.ID,
		Code:                      t.DisplayCode(),
		CompanyID:                 t.CompanyID,
		ProjectID:                 t.ProjectID,
		ProjectCode:               t.ProjectCode,
		CompanyTicketNumber:       t.CompanyTicketNumber,
		Title:                     t.Title,
		Description:               t.Description,
		Status:                    t.Status,
		Priority:                  t.Priority,
		CreatedByID:               t.CreatedByID,
		AssignedCreativeID:        t.AssignedCreativeID,
		RevisionCount:             t.RevisionCount,
		LatestRevisionHasFeedback: t.LatestRevisionHasFeedback,
		CreatedAt:                 t.CreatedAt,
		UpdatedAt:                 t.UpdatedAt,
	}
}

// NewTicketResponses maps a collection.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, NewTicketResponse(t))
	}
	return out
}

// NewStatsResponse maps board stats.
func NewStatsResponse(stats domain.BoardStats) StatsResponse {
	out := StatsResponse{
		Total:      stats.Total,
		ByStatus:   make(map[string]int, len(domain.TicketStatuses)),
		ByPriority: make(map[string]int, len(domain.TicketPriorities)),
	}
	for _, status := range domain.TicketStatuses {
		out.ByStatus[string(status)] = stats.ByStatus[status]
	}
	for _, priority := range domain.TicketPriorities {
		out.ByPriority[string(priority)] = stats.ByPriority[priority]
	}
	return out
}

// ToDomain validates a ticket received over the wire.
func (r TicketResponse) ToDomain() (domain.Ticket, error) {
	if r.ID == "" {
		return domain.Ticket{}, fmt.Errorf("ticket: missing id")
	}
	if !r.Status.Valid() {
		return domain.Ticket{}, fmt.Errorf("ticket %s: unknown status %q", r.ID, r.Status)
	}
	if !r.Priority.Valid() {
		return domain.Ticket{}, fmt.Errorf("ticket %s: unknown priority %q", r.ID, r.Priority)
	}
	if r.RevisionCount < 0 {
		return domain.Ticket{}, fmt.Errorf("ticket %s: negative revision count", r.ID)
	}
	return domain.Ticket{
		ID:                        r.ID,
		CompanyID:                 r.CompanyID,
		ProjectID:                 r.ProjectID,
		ProjectCode:               r.ProjectCode,
		CompanyTicketNumber:       r.CompanyTicketNumber,
		Title:                     r.Title,
		Description:               r.Description,
		Status:                    r.Status,
		Priority:                  r.Priority,
		CreatedByID:               r.CreatedByID,
		AssignedCreativeID:        r.AssignedCreativeID,
		RevisionCount:             r.RevisionCount,
		LatestRevisionHasFeedback: r.LatestRevisionHasFeedback,
		CreatedAt:                 r.CreatedAt,
		UpdatedAt:                 r.UpdatedAt,
	}, nil
}

// ToDomain validates stats received over the wire.
func (r StatsResponse) ToDomain() (domain.BoardStats, error) {
	stats := domain.BoardStats{
		Total:      r.Total,
		ByStatus:   make(map[domain.TicketStatus]int, len(domain.TicketStatuses)),
		ByPriority: make(map[domain.TicketPriority]int, len(domain.TicketPriorities)),
	}
	for _, status := range domain.TicketStatuses {
		stats.ByStatus[status] = 0
	}
	for _, priority := range domain.TicketPriorities {
		stats.ByPriority[priority] = 0
	}
	for key, count := range r.ByStatus {
		status := domain.TicketStatus(key)
		if !status.Valid() || count < 0 {
			return domain.BoardStats{}, fmt.Errorf("stats: invalid status entry %q=%d", key, count)
		}
		stats.ByStatus[status] = count
	}
	for key, count := range r.ByPriority {
		priority := domain.TicketPriority(key)
		if !priority.Valid() || count < 0 {
			return domain.BoardStats{}, fmt.Errorf("stats: invalid priority entry %q=%d", key, count)
		}
		stats.ByPriority[priority] = count
	}
	return stats, nil
}

// ToDomain validates a board received over the wire.
func (r BoardResponse) ToDomain() ([]domain.Ticket, domain.BoardStats, error) {
	tickets := make([]domain.Ticket, 0, len(r.Tickets))
	for _, item := range r.Tickets {
		ticket, err := item.ToDomain()
		if err != nil {
			return nil, domain.BoardStats{}, err
		}
		tickets = append(tickets, ticket)
	}
	stats, err := r.Stats.ToDomain()
	if err != nil {
		return nil, domain.BoardStats{}, err
	}
	return tickets, stats, nil
}
