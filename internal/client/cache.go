package client

import (
	"sort"
	"sync"

	"github.com/spec-kit/creative-board/internal/domain"
)

// Token identifies one speculative patch. A newer patch on the same ticket
// supersedes older ones.
type Token struct {
	TicketID string
	seq      uint64
}

type speculation struct {
	seq    uint64
	status domain.TicketStatus
}

// Cache holds the viewer's tickets in two layers: confirmed records as the
// server last reported them, and unconfirmed status patches on top. Readers
// always see the merged view; stats are folded over it on every read.
type Cache struct {
	mu           sync.RWMutex
	confirmed    map[string]domain.Ticket
	speculative  map[string]speculation
	confirmedSeq map[string]uint64
	// confirmedAt records the cache sequence at which a record was last
	// adopted from a mutation response.
	confirmedAt map[string]uint64
	seq         uint64
}

// NewCache constructs an empty cache.
func NewCache() *Cache {
	return &Cache{
		confirmed:    make(map[string]domain.Ticket),
		speculative:  make(map[string]speculation),
		confirmedSeq: make(map[string]uint64),
		confirmedAt:  make(map[string]uint64),
	}
}

// Load replaces the confirmed layer with a full board. Patches for tickets
// still on the board stay in place until their request resolves.
func (c *Cache) Load(tickets []domain.Ticket) {
	c.LoadSince(tickets, c.Seq())
}

// Seq returns the cache's current sequence. Callers take it before issuing a
// board read and hand it to LoadSince with the response.
func (c *Cache) Seq() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seq
}

// LoadSince is Load for a board read issued at sequence since. Records
// adopted from mutation responses after since are newer than the board and
// are kept in place of the board's copy.
func (c *Cache) LoadSince(tickets []domain.Ticket, since uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	confirmed := make(map[string]domain.Ticket, len(tickets))
	for _, t := range tickets {
		confirmed[t.ID] = t
	}
	for id, t := range c.confirmed {
		if c.confirmedAt[id] > since {
			confirmed[id] = t
		}
	}
	c.confirmed = confirmed
	for id := range c.speculative {
		if _, ok := c.confirmed[id]; !ok {
			delete(c.speculative, id)
		}
	}
}

// Ticket returns the merged view of one ticket.
func (c *Cache) Ticket(id string) (domain.Ticket, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewLocked(id)
}

// Confirmed returns the ticket without unconfirmed patches.
func (c *Cache) Confirmed(id string) (domain.Ticket, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.confirmed[id]
	return t, ok
}

// Tickets returns the merged view of every ticket ordered by id.
func (c *Cache) Tickets() []domain.Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Ticket, 0, len(c.confirmed))
	for id := range c.confirmed {
		t, _ := c.viewLocked(id)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Column returns one board column in display order.
func (c *Cache) Column(status domain.TicketStatus) []domain.Ticket {
	var column []domain.Ticket
	for _, t := range c.Tickets() {
		if t.Status == status {
			column = append(column, t)
		}
	}
	domain.SortForBoard(column)
	return column
}

// Stats folds the merged view, which is what the board displays.
func (c *Cache) Stats() domain.BoardStats {
	return domain.ComputeStats(c.Tickets())
}

// ConfirmedStats folds only server-confirmed records.
func (c *Cache) ConfirmedStats() domain.BoardStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tickets := make([]domain.Ticket, 0, len(c.confirmed))
	for _, t := range c.confirmed {
		tickets = append(tickets, t)
	}
	return domain.ComputeStats(tickets)
}

// Pending reports how many tickets carry an unconfirmed patch.
func (c *Cache) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.speculative)
}

// Speculate patches a ticket's status ahead of the server's answer.
func (c *Cache) Speculate(id string, status domain.TicketStatus) (Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.confirmed[id]; !ok {
		return Token{}, false
	}
	c.seq++
	c.speculative[id] = speculation{seq: c.seq, status: status}
	return Token{TicketID: id, seq: c.seq}, true
}

// Confirm adopts the server's record for the token's request. It returns
// false when a response for a later request on the ticket was already
// adopted; the record is then ignored. The patch is dropped only if it is
// still the token's own.
func (c *Cache) Confirm(tok Token, ticket domain.Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmLocked(tok, ticket)
}

// ConfirmStatus is Confirm for responses that carry only the new status.
func (c *Cache) ConfirmStatus(tok Token, status domain.TicketStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ticket, ok := c.confirmed[tok.TicketID]
	if !ok {
		c.discardLocked(tok)
		return false
	}
	ticket.Status = status
	return c.confirmLocked(tok, ticket)
}

// Discard drops the token's patch if no newer patch replaced it.
func (c *Cache) Discard(tok Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discardLocked(tok)
}

func (c *Cache) confirmLocked(tok Token, ticket domain.Ticket) bool {
	if tok.seq < c.confirmedSeq[tok.TicketID] {
		return false
	}
	c.seq++
	c.confirmed[tok.TicketID] = ticket
	c.confirmedSeq[tok.TicketID] = tok.seq
	c.confirmedAt[tok.TicketID] = c.seq
	c.discardLocked(tok)
	return true
}

func (c *Cache) discardLocked(tok Token) {
	if spec, ok := c.speculative[tok.TicketID]; ok && spec.seq == tok.seq {
		delete(c.speculative, tok.TicketID)
	}
}

func (c *Cache) viewLocked(id string) (domain.Ticket, bool) {
	t, ok := c.confirmed[id]
	if !ok {
		return domain.Ticket{}, false
	}
	if spec, ok := c.speculative[id]; ok {
		t.Status = spec.status
	}
	return t, true
}
