package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/spec-kit/creative-board/internal/client"
	"github.com/spec-kit/creative-board/internal/domain"
)

var styles = struct {
	title   lipgloss.Style
	column  lipgloss.Style
	code    lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	urgent  lipgloss.Style
}{
	title:   lipgloss.NewStyle().Bold(true),
	column:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
	code:    lipgloss.NewStyle().Width(12),
	muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	failure: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	urgent:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
}

// renderBoard prints each column in board order followed by the totals.
func renderBoard(cache *client.Cache, statuses []domain.TicketStatus) string {
	var b strings.Builder
	stats := cache.Stats()
	for _, status := range statuses {
		column := cache.Column(status)
		fmt.Fprintf(&b, "%s %s\n", styles.column.Render(status.Label()), styles.muted.Render(fmt.Sprintf("(%d)", stats.ByStatus[status])))
		if len(column) == 0 {
			b.WriteString(styles.muted.Render("  no tickets") + "\n")
		}
		for _, t := range column {
			b.WriteString("  " + renderTicketLine(t) + "\n")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s %d tickets", styles.title.Render("Total"), stats.Total)
	if pending := cache.Pending(); pending > 0 {
		b.WriteString(styles.warning.Render(fmt.Sprintf(" (%d pending)", pending)))
	}
	b.WriteString("\n")
	return b.String()
}

func renderTicketLine(t domain.Ticket) string {
	priority := string(t.Priority)
	switch t.Priority {
	case domain.TicketPriorityUrgent, domain.TicketPriorityHigh:
		priority = styles.urgent.Render(priority)
	default:
		priority = styles.muted.Render(priority)
	}
	line := styles.code.Render(t.DisplayCode()) + " " + t.Title + " " + priority
	if t.RevisionCount > 0 {
		line += styles.muted.Render(fmt.Sprintf(" r%d", t.RevisionCount))
	}
	if t.LatestRevisionHasFeedback {
		line += styles.warning.Render(" changes requested")
	}
	return line
}

// renderOutcome formats a coordinator outcome as one status line.
func renderOutcome(o client.Outcome) string {
	switch o.Kind {
	case client.OutcomeSucceeded:
		return styles.success.Render("✓ " + o.Message)
	case client.OutcomeNoOp:
		msg := o.Message
		if msg == "" {
			msg = "nothing to change"
		}
		return styles.muted.Render("· " + msg)
	case client.OutcomePartial:
		return styles.warning.Render("! " + o.Message)
	case client.OutcomeCancelled:
		return styles.muted.Render("· cancelled")
	default:
		label := string(o.Kind)
		if o.Failure != client.FailureNone {
			label += ", " + string(o.Failure)
		}
		return styles.failure.Render(fmt.Sprintf("✗ %s (%s)", o.Message, label))
	}
}

// renderBulkResults lists the per-ticket results of a bulk move.
func renderBulkResults(cache *client.Cache, o client.Outcome) string {
	results := append([]client.ItemResult(nil), o.Results...)
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Success != results[j].Success {
			return !results[i].Success
		}
		return results[i].TicketID < results[j].TicketID
	})

	var b strings.Builder
	for _, r := range results {
		name := r.TicketID
		if t, ok := cache.Ticket(r.TicketID); ok {
			name = t.DisplayCode()
		}
		switch {
		case !r.Success:
			fmt.Fprintf(&b, "  %s %s %s\n", styles.failure.Render("✗"), styles.code.Render(name), r.Reason)
		case r.Changed:
			fmt.Fprintf(&b, "  %s %s\n", styles.success.Render("✓"), name)
		default:
			fmt.Fprintf(&b, "  %s %s %s\n", styles.muted.Render("·"), styles.code.Render(name), styles.muted.Render("already there"))
		}
	}
	return b.String()
}

// renderRevisions prints the history oldest first, marking the current version.
func renderRevisions(t domain.Ticket, revisions []domain.Revision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", styles.title.Render(t.DisplayCode()), t.Title, styles.muted.Render("["+t.Status.Label()+"]"))
	if len(revisions) == 0 {
		b.WriteString(styles.muted.Render("  no revisions yet") + "\n")
		return b.String()
	}
	for i, r := range revisions {
		marker := " "
		if i == len(revisions)-1 {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s v%d submitted %s, %d asset(s)\n", marker, r.Version, r.SubmittedAt.Format("2006-01-02 15:04"), len(r.Assets))
		if r.CreativeMessage != nil && *r.CreativeMessage != "" {
			fmt.Fprintf(&b, "    note: %s\n", *r.CreativeMessage)
		}
		for _, a := range r.Assets {
			fmt.Fprintf(&b, "    %s %s\n", a.FileName, styles.muted.Render(fmt.Sprintf("%s, %d bytes", a.MimeType, a.SizeBytes)))
		}
		if r.HasFeedback() {
			feedback := ""
			if r.FeedbackMessage != nil {
				feedback = *r.FeedbackMessage
			}
			fmt.Fprintf(&b, "    %s %s\n", styles.warning.Render("feedback:"), feedback)
		}
	}
	return b.String()
}

func renderSession(s client.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s)\n", styles.title.Render("Actor"), s.Actor.ID, s.Actor.Kind)
	fmt.Fprintf(&b, "%s %s\n", styles.title.Render("Company"), s.Actor.CompanyID)
	if s.Actor.Role != "" {
		fmt.Fprintf(&b, "%s %s\n", styles.title.Render("Role"), s.Actor.Role)
	}
	caps := []struct {
		name string
		on   bool
	}{
		{"move on board", s.Capabilities.CanMoveOnBoard},
		{"mark done", s.Capabilities.CanMarkDone},
		{"edit tickets", s.Capabilities.CanEditTickets},
		{"manage tags", s.Capabilities.CanManageTags},
		{"manage projects", s.Capabilities.CanManageProjects},
		{"manage billing", s.Capabilities.CanManageBilling},
	}
	for _, c := range caps {
		mark := styles.failure.Render("no ")
		if c.on {
			mark = styles.success.Render("yes")
		}
		fmt.Fprintf(&b, "  %s %s\n", mark, c.name)
	}
	return b.String()
}
