package client

import (
	"context"
	"io"

	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/workflow"
)

// Session is the authenticated viewer as the server resolved it.
type Session struct {
	Actor        domain.Actor
	Capabilities workflow.Capabilities
}

// BoardSnapshot is a full board read.
type BoardSnapshot struct {
	Tickets []domain.Ticket
	Stats   domain.BoardStats
}

// StatusChange is the authoritative single-ticket request.
type StatusChange struct {
	TicketID        string
	Target          domain.TicketStatus
	FeedbackMessage string
	CreativeMessage string
	Assets          []domain.AssetRef
}

// StatusResult is the server's answer to a StatusChange.
type StatusResult struct {
	Ticket     domain.Ticket
	Stats      domain.BoardStats
	RevisionID string
	Changed    bool
}

// BulkItem is one ticket of a bulk response.
type BulkItem struct {
	TicketID string
	Success  bool
	Reason   string
	Changed  bool
	Ticket   *domain.Ticket
}

// BulkResult is the server's answer to a bulk status change.
type BulkResult struct {
	SuccessCount int
	FailCount    int
	Results      []BulkItem
	Stats        domain.BoardStats
}

// Gateway is the board API as the client engine sees it. Responses are
// validated at this boundary; API failures are *errorutil.DomainError.
type Gateway interface {
	Me(ctx context.Context) (Session, error)
	Board(ctx context.Context) (BoardSnapshot, error)
	ChangeStatus(ctx context.Context, change StatusChange) (StatusResult, error)
	BulkChangeStatus(ctx context.Context, ticketIDs []string, target domain.TicketStatus) (BulkResult, error)
	Revisions(ctx context.Context, ticketID string) ([]domain.Revision, error)
}

// File is a local file to upload before a submission.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

// AssetUploader stores files in external storage and returns references the
// board API accepts.
type AssetUploader interface {
	Upload(ctx context.Context, ticketID string, file File) (domain.AssetRef, error)
}
