package domain

import "time"

// Revision is one versioned entry of the append-only review ledger.
type Revision struct {
	ID              string
	TicketID        string
	Version         int
	SubmittedByID   string
	SubmittedAt     time.Time
	FeedbackAt      *time.Time
	FeedbackMessage *string
	CreativeMessage *string
	Assets          []RevisionAsset
}

// HasFeedback reports whether the customer requested changes on this version.
func (r Revision) HasFeedback() bool {
	return r.FeedbackAt != nil
}

// RevisionAsset references an output file attached to a revision.
// Storage is external; only identity and metadata live here.
type RevisionAsset struct {
	ID         string
	RevisionID string
	Position   int
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}

// AssetRef describes an already uploaded file to register on a revision.
type AssetRef struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}
