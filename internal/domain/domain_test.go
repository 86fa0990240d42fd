package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatsCountsEveryTicket(t *testing.T) {
	t.Parallel()

	tickets := []Ticket{
		{ID: "1", Status: TicketStatusTodo, Priority: TicketPriorityLow},
		{ID: "2", Status: TicketStatusTodo, Priority: TicketPriorityUrgent},
		{ID: "3", Status: TicketStatusInReview, Priority: TicketPriorityUrgent},
		{ID: "4", Status: TicketStatusDone, Priority: TicketPriorityMedium},
	}

	stats := ComputeStats(tickets)
	require.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[TicketStatusTodo])
	assert.Equal(t, 0, stats.ByStatus[TicketStatusInProgress])
	assert.Equal(t, 1, stats.ByStatus[TicketStatusInReview])
	assert.Equal(t, 1, stats.ByStatus[TicketStatusDone])
	assert.Equal(t, 2, stats.ByPriority[TicketPriorityUrgent])
	assert.Equal(t, 0, stats.ByPriority[TicketPriorityHigh])

	statusSum, prioritySum := 0, 0
	for _, c := range stats.ByStatus {
		statusSum += c
	}
	for _, c := range stats.ByPriority {
		prioritySum += c
	}
	assert.Equal(t, stats.Total, statusSum)
	assert.Equal(t, stats.Total, prioritySum)
}

func TestComputeStatsEmpty(t *testing.T) {
	t.Parallel()

	stats := ComputeStats(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Len(t, stats.ByStatus, len(TicketStatuses))
	assert.Len(t, stats.ByPriority, len(TicketPriorities))
}

func TestBoardStatsEqualIgnoresZeroEntries(t *testing.T) {
	t.Parallel()

	computed := ComputeStats([]Ticket{{Status: TicketStatusTodo, Priority: TicketPriorityLow}})
	sparse := BoardStats{
		Total:      1,
		ByStatus:   map[TicketStatus]int{TicketStatusTodo: 1},
		ByPriority: map[TicketPriority]int{TicketPriorityLow: 1},
	}
	assert.True(t, computed.Equal(sparse))
	assert.True(t, sparse.Equal(computed))

	sparse.ByStatus = map[TicketStatus]int{TicketStatusDone: 1}
	assert.False(t, computed.Equal(sparse))
}

func TestDisplayCode(t *testing.T) {
	t.Parallel()

	code := "brand"
	number := 12
	withProject := Ticket{ID: "0f8e2c3a-1111-2222-3333-444455556666", ProjectCode: &code, CompanyTicketNumber: &number}
	assert.Equal(t, "BRAND-12", withProject.DisplayCode())

	fallback := Ticket{ID: "0f8e2c3a-1111-2222-3333-444455556666"}
	assert.Equal(t, "TKT-0F8E2C3A", fallback.DisplayCode())

	onlyNumber := Ticket{ID: "abc", CompanyTicketNumber: &number}
	assert.Equal(t, "TKT-ABC", onlyNumber.DisplayCode())
}

func TestParseTicketStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected TicketStatus
		wantErr  bool
	}{
		{"todo", TicketStatusTodo, false},
		{"in-progress", TicketStatusInProgress, false},
		{" In Review ", TicketStatusInReview, false},
		{"DONE", TicketStatusDone, false},
		{"closed", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		status, err := ParseTicketStatus(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "ParseTicketStatus(%q)", tt.input)
			continue
		}
		require.NoError(t, err, "ParseTicketStatus(%q)", tt.input)
		assert.Equal(t, tt.expected, status)
	}
}

func TestPriorityRankOrdersUrgency(t *testing.T) {
	t.Parallel()

	for i := 1; i < len(TicketPriorities); i++ {
		assert.Less(t, TicketPriorities[i-1].Rank(), TicketPriorities[i].Rank())
	}
	assert.False(t, TicketPriority("CRITICAL").Valid())
}

func TestSortForBoard(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	tickets := []Ticket{
		{ID: "a", Priority: TicketPriorityLow, UpdatedAt: base.Add(time.Hour)},
		{ID: "b", Priority: TicketPriorityUrgent, UpdatedAt: base},
		{ID: "c", Priority: TicketPriorityHigh, UpdatedAt: base},
		{ID: "d", Priority: TicketPriorityHigh, UpdatedAt: base.Add(2 * time.Hour)},
	}
	SortForBoard(tickets)

	ids := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids)
}
