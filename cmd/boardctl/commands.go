package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/spec-kit/creative-board/internal/auth"
	"github.com/spec-kit/creative-board/internal/client"
	"github.com/spec-kit/creative-board/internal/domain"
)

var commands []command

func init() {
	commands = []command{
		{
			name:    "board",
			summary: "Show the board columns and counts",
			usage:   "boardctl board [--status STATUS]",
			flags: func(fs *pflag.FlagSet) {
				fs.String("status", "", "only show one column")
			},
			run: runBoard,
		},
		{
			name:    "move",
			summary: "Move one ticket to another status",
			usage:   "boardctl move TICKET STATUS [--feedback TEXT] [--message TEXT] [--asset KEY:NAME:MIME:SIZE ...]",
			flags: func(fs *pflag.FlagSet) {
				fs.String("feedback", "", "feedback when requesting changes")
				fs.String("message", "", "note to the customer when submitting for review")
				fs.StringArray("asset", nil, "already uploaded asset as storage-key:file-name:mime-type:size")
			},
			run: runMove,
		},
		{
			name:    "bulk-move",
			summary: "Move several tickets to one status",
			usage:   "boardctl bulk-move STATUS TICKET...",
			run:     runBulkMove,
		},
		{
			name:    "revisions",
			summary: "Show a ticket's revision history",
			usage:   "boardctl revisions TICKET",
			run:     runRevisions,
		},
		{
			name:    "whoami",
			summary: "Show the authenticated actor and capabilities",
			usage:   "boardctl whoami",
			run:     runWhoami,
		},
		{
			name:    "token",
			summary: "Mint a development token with the server secret",
			usage:   "boardctl token --id ID --kind customer|creative --company ID [--role ROLE]",
			flags: func(fs *pflag.FlagSet) {
				fs.String("id", "", "actor id")
				fs.String("kind", "customer", "customer or creative")
				fs.String("company", "", "company id")
				fs.String("role", "", "company role for customers (OWNER, PM, BILLING, MEMBER)")
				fs.Duration("ttl", 0, "token lifetime (defaults to AUTH_ACCESS_TOKEN_TTL_MINUTES)")
			},
			run: runToken,
		},
	}
}

func runBoard(ctx context.Context, env *environment, args []string) error {
	engine, err := env.startEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	statuses := domain.TicketStatuses
	if raw, _ := env.flags.GetString("status"); raw != "" {
		status, err := domain.ParseTicketStatus(raw)
		if err != nil {
			return err
		}
		statuses = []domain.TicketStatus{status}
	}
	fmt.Fprint(env.out, renderBoard(engine.Cache(), statuses))
	return nil
}

func runMove(ctx context.Context, env *environment, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expected TICKET and STATUS")
	}
	target, err := domain.ParseTicketStatus(args[1])
	if err != nil {
		return err
	}
	feedback, _ := env.flags.GetString("feedback")
	message, _ := env.flags.GetString("message")
	rawAssets, _ := env.flags.GetStringArray("asset")
	assets, err := parseAssets(rawAssets)
	if err != nil {
		return err
	}

	engine, err := env.startEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	ticketID, err := resolveTicket(engine.Cache(), args[0])
	if err != nil {
		return err
	}
	outcome, err := client.NewMutationCoordinator(engine, nil).Move(ctx, client.MoveRequest{
		TicketID:        ticketID,
		Target:          target,
		FeedbackMessage: feedback,
		CreativeMessage: message,
		Assets:          assets,
	})
	if outcome.Kind == client.OutcomeNoOp {
		fmt.Fprintln(env.out, renderOutcome(outcome))
	}
	if outcome.RevisionID != "" {
		fmt.Fprintf(env.out, "revision: %s\n", outcome.RevisionID)
	}
	return outcomeError(outcome, err)
}

func runBulkMove(ctx context.Context, env *environment, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("expected STATUS and at least one TICKET")
	}
	target, err := domain.ParseTicketStatus(args[0])
	if err != nil {
		return err
	}

	engine, err := env.startEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	ids := make([]string, 0, len(args)-1)
	for _, ref := range args[1:] {
		id, err := resolveTicket(engine.Cache(), ref)
		if err != nil {
			// Unknown references are passed through; the server reports them.
			id = ref
		}
		ids = append(ids, id)
	}
	outcome, err := client.NewBulkCoordinator(engine).Move(ctx, ids, target)
	if len(outcome.Results) > 0 {
		fmt.Fprint(env.out, renderBulkResults(engine.Cache(), outcome))
	}
	return outcomeError(outcome, err)
}

func runRevisions(ctx context.Context, env *environment, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected TICKET")
	}
	engine, err := env.startEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	ticketID, err := resolveTicket(engine.Cache(), args[0])
	if err != nil {
		return err
	}
	loader := client.NewRevisionLoader(engine)
	defer loader.Release(ticketID)
	revisions, err := loader.Load(ctx, ticketID)
	if err != nil {
		return err
	}
	ticket, _ := engine.Cache().Ticket(ticketID)
	fmt.Fprint(env.out, renderRevisions(ticket, revisions))
	return nil
}

func runWhoami(ctx context.Context, env *environment, _ []string) error {
	engine, err := env.startEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()
	fmt.Fprint(env.out, renderSession(engine.Session()))
	return nil
}

func runToken(_ context.Context, env *environment, _ []string) error {
	id, _ := env.flags.GetString("id")
	kind, _ := env.flags.GetString("kind")
	company, _ := env.flags.GetString("company")
	role, _ := env.flags.GetString("role")
	ttl, _ := env.flags.GetDuration("ttl")

	actor := domain.Actor{
		ID:        strings.TrimSpace(id),
		Kind:      domain.ActorKind(strings.ToUpper(strings.TrimSpace(kind))),
		CompanyID: strings.TrimSpace(company),
	}
	if actor.ID == "" || actor.CompanyID == "" {
		return fmt.Errorf("--id and --company are required")
	}
	switch actor.Kind {
	case domain.ActorKindCreative:
	case domain.ActorKindCustomer:
		actor.Role = domain.ParseCompanyRole(role)
		if !actor.Role.Valid() {
			return fmt.Errorf("customers need a valid --role, got %q", role)
		}
	default:
		return fmt.Errorf("--kind must be customer or creative, got %q", kind)
	}

	minutes := env.cfg.Auth.AccessTokenTTLMinutes
	if ttl > 0 {
		minutes = int(ttl / time.Minute)
	}
	tokens := auth.NewTokenManager(env.cfg.Auth.JWTSecret, env.cfg.Auth.Issuer, minutes)
	token, expires, err := tokens.GenerateToken(actor)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.out, token)
	fmt.Fprintln(env.errOut, styles.muted.Render("expires "+expires.Format(time.RFC3339)))
	return nil
}

// resolveTicket accepts a ticket id or its display code (e.g. BRAND-12).
func resolveTicket(cache *client.Cache, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if _, ok := cache.Ticket(ref); ok {
		return ref, nil
	}
	for _, t := range cache.Tickets() {
		if strings.EqualFold(t.DisplayCode(), ref) {
			return t.ID, nil
		}
	}
	return "", fmt.Errorf("ticket %q is not on your board", ref)
}

func parseAssets(raw []string) ([]domain.AssetRef, error) {
	refs := make([]domain.AssetRef, 0, len(raw))
	for _, item := range raw {
		parts := strings.Split(item, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("asset %q: expected storage-key:file-name:mime-type:size", item)
		}
		size, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil || size < 0 {
			return nil, fmt.Errorf("asset %q: invalid size", item)
		}
		refs = append(refs, domain.AssetRef{
			StorageKey: parts[0],
			FileName:   parts[1],
			MimeType:   parts[2],
			SizeBytes:  size,
		})
	}
	return refs, nil
}

// outcomeError turns a reported but unsuccessful outcome into a non-zero exit.
func outcomeError(outcome client.Outcome, err error) error {
	switch outcome.Kind {
	case client.OutcomeSucceeded, client.OutcomeNoOp:
		return nil
	case client.OutcomeCancelled:
		return err
	default:
		return errOutcome
	}
}
