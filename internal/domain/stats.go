package domain

// BoardStats summarizes a ticket collection. It is always derived by
// ComputeStats and never patched in place.
type BoardStats struct {
	Total      int
	ByStatus   map[TicketStatus]int
	ByPriority map[TicketPriority]int
}

// ComputeStats folds a ticket collection into per-status and per-priority counts.
// Every known status and priority is present, zero-valued when unused.
func ComputeStats(tickets []Ticket) BoardStats {
	stats := BoardStats{
		ByStatus:   make(map[TicketStatus]int, len(TicketStatuses)),
		ByPriority: make(map[TicketPriority]int, len(TicketPriorities)),
	}
	for _, status := range TicketStatuses {
		stats.ByStatus[status] = 0
	}
	for _, priority := range TicketPriorities {
		stats.ByPriority[priority] = 0
	}
	for _, ticket := range tickets {
		stats.Total++
		stats.ByStatus[ticket.Status]++
		stats.ByPriority[ticket.Priority]++
	}
	return stats
}

// Equal compares two summaries count by count.
func (s BoardStats) Equal(other BoardStats) bool {
	if s.Total != other.Total {
		return false
	}
	if len(nonZeroStatus(s.ByStatus)) != len(nonZeroStatus(other.ByStatus)) {
		return false
	}
	for status, count := range nonZeroStatus(s.ByStatus) {
		if other.ByStatus[status] != count {
			return false
		}
	}
	if len(nonZeroPriority(s.ByPriority)) != len(nonZeroPriority(other.ByPriority)) {
		return false
	}
	for priority, count := range nonZeroPriority(s.ByPriority) {
		if other.ByPriority[priority] != count {
			return false
		}
	}
	return true
}

func nonZeroStatus(in map[TicketStatus]int) map[TicketStatus]int {
	out := make(map[TicketStatus]int, len(in))
	for k, v := range in {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

func nonZeroPriority(in map[TicketPriority]int) map[TicketPriority]int {
	out := make(map[TicketPriority]int, len(in))
	for k, v := range in {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}
