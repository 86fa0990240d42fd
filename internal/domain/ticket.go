package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TicketStatus enumerates the workflow states of a creative request.
type TicketStatus string

const (
	TicketStatusTodo       TicketStatus = "TODO"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusInReview   TicketStatus = "IN_REVIEW"
	TicketStatusDone       TicketStatus = "DONE"
)

// TicketStatuses lists every status in board column order.
var TicketStatuses = []TicketStatus{
	TicketStatusTodo,
	TicketStatusInProgress,
	TicketStatusInReview,
	TicketStatusDone,
}

// Valid reports whether the status is one of the known workflow states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusTodo, TicketStatusInProgress, TicketStatusInReview, TicketStatusDone:
		return true
	}
	return false
}

// Label is the board column title for the status.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusTodo:
		return "To Do"
	case TicketStatusInProgress:
		return "In Progress"
	case TicketStatusInReview:
		return "In Review"
	case TicketStatusDone:
		return "Done"
	}
	return string(s)
}

// ParseTicketStatus normalizes user input such as "in-review" or "done".
func ParseTicketStatus(raw string) (TicketStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	status := TicketStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("unknown ticket status %q", raw)
	}
	return status, nil
}

// TicketPriority is orthogonal to the workflow and only drives ordering.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// TicketPriorities lists priorities from least to most urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// Valid reports whether the priority is known.
func (p TicketPriority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities; higher is more urgent, zero means unknown.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityLow:
		return 1
	case TicketPriorityMedium:
		return 2
	case TicketPriorityHigh:
		return 3
	case TicketPriorityUrgent:
		return 4
	}
	return 0
}

// Ticket is the aggregate tracked through the board workflow.
type Ticket struct {
	ID                        string
	CompanyID                 string
	ProjectID                 *string
	ProjectCode               *string
	CompanyTicketNumber       *int
	Title                     string
	Description               string
	Status                    TicketStatus
	Priority                  TicketPriority
	CreatedByID               string
	AssignedCreativeID        *string
	RevisionCount             int
	LatestRevisionHasFeedback bool
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// DisplayCode returns the human-facing code, e.g. "BRAND-12", or a fallback
// derived from the id when the ticket has no project or number.
func (t Ticket) DisplayCode() string {
	if t.ProjectCode != nil && *t.ProjectCode != "" && t.CompanyTicketNumber != nil {
		return fmt.Sprintf("%s-%d", strings.ToUpper(*t.ProjectCode), *t.CompanyTicketNumber)
	}
	compact := strings.ToUpper(strings.ReplaceAll(t.ID, "-", ""))
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return "TKT-" + compact
}

// AssignedTo reports whether the ticket is assigned to the given creative.
func (t Ticket) AssignedTo(creativeID string) bool {
	return t.AssignedCreativeID != nil && *t.AssignedCreativeID == creativeID
}

// SortForBoard orders a column: most urgent first, then most recently updated.
func SortForBoard(tickets []Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		if ri, rj := tickets[i].Priority.Rank(), tickets[j].Priority.Rank(); ri != rj {
			return ri > rj
		}
		if !tickets[i].UpdatedAt.Equal(tickets[j].UpdatedAt) {
			return tickets[i].UpdatedAt.After(tickets[j].UpdatedAt)
		}
		return tickets[i].ID < tickets[j].ID
	})
}
