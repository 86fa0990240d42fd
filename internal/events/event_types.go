package events

import (
	"time"

	"github.com/spec-kit/creative-board/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventRevisionSubmitted   EventType = "revision_submitted"
	EventChangesRequested    EventType = "changes_requested"
	EventTicketApproved      EventType = "ticket_approved"
	EventRevisionAssetsAdded EventType = "revision_assets_added"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string             `json:"id"`
	Kind domain.ActorKind   `json:"kind"`
	Role domain.CompanyRole `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CompanyID string      `json:"company_id"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Code     string                `json:"code"`
	Priority domain.TicketPriority `json:"priority"`
	Title    string                `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	CreativeID *string `json:"creative_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Bulk      bool                `json:"bulk,omitempty"`
}

// RevisionSubmittedPayload payload.
type RevisionSubmittedPayload struct {
	RevisionID      string  `json:"revision_id"`
	Version         int     `json:"version"`
	AssetCount      int     `json:"asset_count"`
	CreativeMessage *string `json:"creative_message,omitempty"`
}

// ChangesRequestedPayload payload.
type ChangesRequestedPayload struct {
	RevisionID      string `json:"revision_id"`
	Version         int    `json:"version"`
	FeedbackPreview string `json:"feedback_preview"`
}

// TicketApprovedPayload payload.
type TicketApprovedPayload struct {
	RevisionID string `json:"revision_id,omitempty"`
	Version    int    `json:"version,omitempty"`
}

// RevisionAssetsAddedPayload payload.
type RevisionAssetsAddedPayload struct {
	RevisionID string `json:"revision_id"`
	Added      int    `json:"added"`
}
