package dto

import (
	"fmt"
	"time"

	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/workflow"
)

// AssetRequest references a file already uploaded to external storage.
type AssetRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	TargetStatus    string         `json:"target_status"`
	FeedbackMessage string         `json:"feedback_message,omitempty"`
	CreativeMessage string         `json:"creative_message,omitempty"`
	Assets          []AssetRequest `json:"assets,omitempty"`
}

// ChangeStatusResponse returns the canonical ticket and recomputed stats.
type ChangeStatusResponse struct {
	Ticket     TicketResponse    `json:"ticket"`
	Stats      StatsResponse     `json:"stats"`
	RevisionID *string           `json:"revision_id,omitempty"`
	Revision   *RevisionResponse `json:"revision,omitempty"`
	Changed    bool              `json:"changed"`
}

// BulkStatusRequest payload.
type BulkStatusRequest struct {
	TicketIDs    []string `json:"ticket_ids"`
	TargetStatus string   `json:"target_status"`
}

// BulkResultItem is one ticket's bulk outcome.
type BulkResultItem struct {
	TicketID string          `json:"ticket_id"`
	Success  bool            `json:"success"`
	Reason   string          `json:"reason,omitempty"`
	Changed  bool            `json:"changed"`
	Ticket   *TicketResponse `json:"ticket,omitempty"`
}

// BulkStatusResponse aggregates a bulk change.
type BulkStatusResponse struct {
	SuccessCount int              `json:"success_count"`
	FailCount    int              `json:"fail_count"`
	Results      []BulkResultItem `json:"results"`
	Stats        StatsResponse    `json:"stats"`
}

// AttachAssetsRequest payload.
type AttachAssetsRequest struct {
	Assets []AssetRequest `json:"assets"`
}

// RevisionAssetResponse metadata.
type RevisionAssetResponse struct {
	ID         string    `json:"id"`
	Position   int       `json:"position"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// RevisionResponse is one ledger entry.
type RevisionResponse struct {
	ID              string                  `json:"id"`
	TicketID        string                  `json:"ticket_id"`
	Version         int                     `json:"version"`
	SubmittedByID   string                  `json:"submitted_by_id"`
	SubmittedAt     time.Time               `json:"submitted_at"`
	FeedbackAt      *time.Time              `json:"feedback_at"`
	FeedbackMessage *string                 `json:"feedback_message"`
	CreativeMessage *string                 `json:"creative_message"`
	Assets          []RevisionAssetResponse `json:"assets"`
}

// ActorResponse describes the caller.
type ActorResponse struct {
	ID        string             `json:"id"`
	Kind      domain.ActorKind   `json:"kind"`
	CompanyID string             `json:"company_id"`
	Role      domain.CompanyRole `json:"role,omitempty"`
}

// MeResponse is the caller with resolved capabilities.
type MeResponse struct {
	Actor        ActorResponse         `json:"actor"`
	Capabilities workflow.Capabilities `json:"capabilities"`
}

// AssetRefs converts asset requests to domain references.
func AssetRefs(items []AssetRequest) []domain.AssetRef {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.AssetRef, 0, len(items))
	for _, item := range items {
		out = append(out, domain.AssetRef{
			StorageKey: item.StorageKey,
			FileName:   item.FileName,
			MimeType:   item.MimeType,
			SizeBytes:  item.SizeBytes,
		})
	}
	return out
}

// NewAssetRequests converts uploaded references back to the wire shape.
func NewAssetRequests(refs []domain.AssetRef) []AssetRequest {
	if len(refs) == 0 {
		return nil
	}
	out := make([]AssetRequest, 0, len(refs))
	for _, ref := range refs {
		out = append(out, AssetRequest{
			StorageKey: ref.StorageKey,
			FileName:   ref.FileName,
			MimeType:   ref.MimeType,
			SizeBytes:  ref.SizeBytes,
		})
	}
	return out
}

// NewRevisionResponse maps a ledger entry.
func NewRevisionResponse(r domain.Revision) RevisionResponse {
	assets := make([]RevisionAssetResponse, 0, len(r.Assets))
	for _, a := range r.Assets {
		assets = append(assets, RevisionAssetResponse{
			ID:         a.ID,
			Position:   a.Position,
			StorageKey: a.StorageKey,
			FileName:   a.FileName,
			MimeType:   a.MimeType,
			SizeBytes:  a.SizeBytes,
			CreatedAt:  a.CreatedAt,
		})
	}
	return RevisionResponse{
		ID:              r.ID,
		TicketID:        r.TicketID,
		Version:         r.Version,
		SubmittedByID:   r.SubmittedByID,
		SubmittedAt:     r.SubmittedAt,
		FeedbackAt:      r.FeedbackAt,
		FeedbackMessage: r.FeedbackMessage,
		CreativeMessage: r.CreativeMessage,
		Assets:          assets,
	}
}

// NewActorResponse maps the caller.
func NewActorResponse(a domain.Actor) ActorResponse {
	return ActorResponse{ID: a.ID, Kind: a.Kind, CompanyID: a.CompanyID, Role: a.Role}
}

// ToDomain validates a ledger entry received over the wire.
func (r RevisionResponse) ToDomain() (domain.Revision, error) {
	if r.ID == "" {
		return domain.Revision{}, fmt.Errorf("revision: missing id")
	}
	if r.Version <= 0 {
		return domain.Revision{}, fmt.Errorf("revision %s: version must be positive", r.ID)
	}
	if (r.FeedbackAt == nil) != (r.FeedbackMessage == nil) {
		return domain.Revision{}, fmt.Errorf("revision %s: feedback time and message must be set together", r.ID)
	}
	rev := domain.Revision{
		ID:              r.ID,
		TicketID:        r.TicketID,
		Version:         r.Version,
		SubmittedByID:   r.SubmittedByID,
		SubmittedAt:     r.SubmittedAt,
		FeedbackAt:      r.FeedbackAt,
		FeedbackMessage: r.FeedbackMessage,
		CreativeMessage: r.CreativeMessage,
	}
	for _, a := range r.Assets {
		rev.Assets = append(rev.Assets, domain.RevisionAsset{
			ID:         a.ID,
			RevisionID: r.ID,
			Position:   a.Position,
			StorageKey: a.StorageKey,
			FileName:   a.FileName,
			MimeType:   a.MimeType,
			SizeBytes:  a.SizeBytes,
			CreatedAt:  a.CreatedAt,
		})
	}
	return rev, nil
}

// ErrorBody mirrors the API error envelope.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorEnvelope wraps ErrorBody.
type ErrorEnvelope struct {
	Error *ErrorBody `json:"error"`
}
