// Package repotest provides an in-memory repository.Store for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/repository"
	"github.com/spec-kit/creative-board/internal/workflow"
)

type state struct {
	tickets   map[string]domain.Ticket
	revisions map[string]domain.Revision
	assets    map[string][]domain.RevisionAsset
	projects  map[string]string
	numbers   map[string]int
}

func (s *state) clone() *state {
	out := &state{
		tickets:   make(map[string]domain.Ticket, len(s.tickets)),
		revisions: make(map[string]domain.Revision, len(s.revisions)),
		assets:    make(map[string][]domain.RevisionAsset, len(s.assets)),
		projects:  make(map[string]string, len(s.projects)),
		numbers:   make(map[string]int, len(s.numbers)),
	}
	for k, v := range s.tickets {
		out.tickets[k] = v
	}
	for k, v := range s.revisions {
		out.revisions[k] = v
	}
	for k, v := range s.assets {
		out.assets[k] = append([]domain.RevisionAsset(nil), v...)
	}
	for k, v := range s.projects {
		out.projects[k] = v
	}
	for k, v := range s.numbers {
		out.numbers[k] = v
	}
	return out
}

type shared struct {
	mu        sync.Mutex
	txMu      sync.Mutex
	data      *state
	now       func() time.Time
	assetErr  error
	statusErr error
	lookupErr error
	createErr error
	createN   int
	txCount   int
}

// Store is an in-memory repository.Store. Transactions are serialized and
// roll back every write when fn returns an error.
type Store struct {
	shared *shared
	inTx   bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{shared: &shared{
		data: &state{
			tickets:   map[string]domain.Ticket{},
			revisions: map[string]domain.Revision{},
			assets:    map[string][]domain.RevisionAsset{},
			projects:  map[string]string{},
			numbers:   map[string]int{},
		},
		now: time.Now,
	}}
}

// SetNow replaces the clock used for timestamps.
func (s *Store) SetNow(now func() time.Time) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.now = now
}

// FailAssetCreates makes every asset insert return err until cleared with nil.
func (s *Store) FailAssetCreates(err error) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.assetErr = err
}

// FailStatusUpdates makes every status update return err until cleared with nil.
func (s *Store) FailStatusUpdates(err error) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.statusErr = err
}

// FailTicketLookups makes every single-ticket read return err until cleared with nil.
func (s *Store) FailTicketLookups(err error) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.lookupErr = err
}

// FailTicketCreates makes the next n ticket inserts return err.
func (s *Store) FailTicketCreates(err error, n int) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.createErr = err
	s.shared.createN = n
}

// TxCount reports how many top-level transactions have been started.
func (s *Store) TxCount() int {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	return s.shared.txCount
}

// AddProject registers a project code.
func (s *Store) AddProject(projectID, code string) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.data.projects[projectID] = code
}

// SeedTicket stores a ticket as-is, generating an id when empty.
func (s *Store) SeedTicket(ticket domain.Ticket) domain.Ticket {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = s.shared.now()
	}
	if ticket.UpdatedAt.IsZero() {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	s.shared.data.tickets[ticket.ID] = ticket
	return s.decorateLocked(ticket)
}

// SeedRevision appends a ledger entry with the next version for its ticket.
func (s *Store) SeedRevision(revision domain.Revision) domain.Revision {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.createRevisionLocked(&revision)
	return revision
}

// Ticket returns the stored ticket with derived fields.
func (s *Store) Ticket(id string) (domain.Ticket, bool) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	ticket, ok := s.shared.data.tickets[id]
	if !ok {
		return domain.Ticket{}, false
	}
	return s.decorateLocked(ticket), true
}

// Ledger returns a ticket's revisions ordered by version, with assets.
func (s *Store) Ledger(ticketID string) []domain.Revision {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	revisions := s.revisionsLocked(ticketID)
	for i := range revisions {
		revisions[i].Assets = append([]domain.RevisionAsset(nil), s.shared.data.assets[revisions[i].ID]...)
	}
	return revisions
}

func (s *Store) Tickets() repository.TicketRepository {
	return &ticketRepo{store: s}
}

func (s *Store) Revisions() repository.RevisionRepository {
	return &revisionRepo{store: s}
}

func (s *Store) Assets() repository.RevisionAssetRepository {
	return &assetRepo{store: s}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.shared.txMu.Lock()
	defer s.shared.txMu.Unlock()

	s.shared.mu.Lock()
	s.shared.txCount++
	snapshot := s.shared.data.clone()
	s.shared.mu.Unlock()

	if err := fn(&Store{shared: s.shared, inTx: true}); err != nil {
		s.shared.mu.Lock()
		s.shared.data = snapshot
		s.shared.mu.Unlock()
		return err
	}
	return nil
}

var _ repository.Store = (*Store)(nil)

func (s *Store) decorateLocked(ticket domain.Ticket) domain.Ticket {
	revisions := s.revisionsLocked(ticket.ID)
	ticket.RevisionCount = len(revisions)
	ticket.LatestRevisionHasFeedback = workflow.LatestHasFeedback(revisions)
	if ticket.ProjectID != nil {
		if code, ok := s.shared.data.projects[*ticket.ProjectID]; ok {
			c := code
			ticket.ProjectCode = &c
		}
	}
	return ticket
}

func (s *Store) revisionsLocked(ticketID string) []domain.Revision {
	var out []domain.Revision
	for _, rev := range s.shared.data.revisions {
		if rev.TicketID == ticketID {
			out = append(out, rev)
		}
	}
	workflow.SortByVersion(out)
	return out
}

func (s *Store) createRevisionLocked(revision *domain.Revision) {
	revision.ID = uuid.NewString()
	revision.Version = workflow.NextVersion(s.revisionsLocked(revision.TicketID))
	if revision.SubmittedAt.IsZero() {
		revision.SubmittedAt = s.shared.now()
	}
	stored := *revision
	stored.Assets = nil
	s.shared.data.revisions[revision.ID] = stored
}

type ticketRepo struct {
	store *Store
}

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	sh := r.store.shared
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.createN > 0 {
		sh.createN--
		return sh.createErr
	}
	ticket.ID = uuid.NewString()
	sh.data.numbers[ticket.CompanyID]++
	number := sh.data.numbers[ticket.CompanyID]
	ticket.CompanyTicketNumber = &number
	ticket.CreatedAt = sh.now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	stored.ProjectCode = nil
	sh.data.tickets[ticket.ID] = stored
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	sh := r.store.shared
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.lookupErr != nil {
		return nil, sh.lookupErr
	}
	ticket, ok := sh.data.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	decorated := r.store.decorateLocked(ticket)
	return &decorated, nil
}

func (r *ticketRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	sh := r.store.shared
	sh.mu.Lock()
	defer sh.mu.Unlock()

	statuses := make(map[domain.TicketStatus]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses[status] = struct{}{}
	}
	ids := make(map[string]struct{}, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = struct{}{}
	}

	var out []domain.Ticket
	for _, ticket := range sh.data.tickets {
		if ticket.CompanyID != filter.CompanyID {
			continue
		}
		if filter.AssignedCreativeID != nil && !ticket.AssignedTo(*filter.AssignedCreativeID) {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[ticket.Status]; !ok {
				continue
			}
		}
		if len(ids) > 0 {
			if _, ok := ids[ticket.ID]; !ok {
				continue
			}
		}
		out = append(out, r.store.decorateLocked(ticket))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ticketRepo) UpdateStatus(_ context.Context, id string, status domain.TicketStatus) error {
	sh := r.store.shared
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.statusErr != nil {
		return sh.statusErr
	}
	ticket, ok := sh.data.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Status = status
	ticket.UpdatedAt = sh.now()
	sh.data.tickets[id] = ticket
	return nil
}

func (r *ticketRepo) UpdateAssignee(_ context.Context, id string, creativeID *string) error {
	sh := r.store.shared
	sh.mu.Lock()
	defer sh.mu.Unlock()
	ticket, ok := sh.data.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.AssignedCreativeID = creativeID
	ticket.UpdatedAt = sh.now()
	sh.data.tickets[id] = ticket
	return nil
}

type revisionRepo struct {
	store *Store
}

func (r *revisionRepo) Create(_ context.Context, revision *domain.Revision) error {
	sh := r.store.shared
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.data.tickets[revision.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	r.store.createRevisionLocked(revision)
	return nil
}

func (r *revisionRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Revision, error) {
	sh := r.store.shared
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return r.store.revisionsLocked(ticketID), nil
}

func (r *revisionRepo) Latest(_ context.Context, ticketID string) (*domain.Revision, error) {
	sh := r.store.shared
	sh.mu.Lock()
	defer sh.mu.Unlock()
	current, ok := workflow.Current(r.store.revisionsLocked(ticketID))
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &current, nil
}

func (r *revisionRepo) RecordFeedback(_ context.Context, revisionID, message string, at time.Time) error {
	sh := r.store.shared
	sh.mu.Lock()
	defer sh.mu.Unlock()
	revision, ok := sh.data.revisions[revisionID]
	if !ok {
		return pgx.ErrNoRows
	}
	if revision.FeedbackAt != nil {
		return repository.ErrRevisionClosed
	}
	revision.FeedbackAt = &at
	revision.FeedbackMessage = &message
	sh.data.revisions[revisionID] = revision
	return nil
}

type assetRepo struct {
	store *Store
}

func (r *assetRepo) Create(_ context.Context, asset *domain.RevisionAsset) error {
	sh := r.store.shared
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.assetErr != nil {
		return sh.assetErr
	}
	if _, ok := sh.data.revisions[asset.RevisionID]; !ok {
		return pgx.ErrNoRows
	}
	asset.ID = uuid.NewString()
	asset.Position = len(sh.data.assets[asset.RevisionID]) + 1
	asset.CreatedAt = sh.now()
	sh.data.assets[asset.RevisionID] = append(sh.data.assets[asset.RevisionID], *asset)
	return nil
}

func (r *assetRepo) ListByRevisions(_ context.Context, revisionIDs []string) (map[string][]domain.RevisionAsset, error) {
	sh := r.store.shared
	sh.mu.Lock()
	defer sh.mu.Unlock()
	out := make(map[string][]domain.RevisionAsset, len(revisionIDs))
	for _, id := range revisionIDs {
		if assets, ok := sh.data.assets[id]; ok {
			out[id] = append([]domain.RevisionAsset(nil), assets...)
		}
	}
	return out, nil
}
