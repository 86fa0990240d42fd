package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/creative-board/internal/api/dto"
	"github.com/spec-kit/creative-board/internal/domain"
	apperrors "github.com/spec-kit/creative-board/pkg/util/errorutil"
)

const defaultGatewayTimeout = 15 * time.Second

// HTTPGateway talks to the board API with fiber's HTTP client.
type HTTPGateway struct {
	baseURL string
	token   string
	timeout time.Duration
}

// NewHTTPGateway targets baseURL (e.g. http://localhost:8080) with a bearer token.
func NewHTTPGateway(baseURL, token string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		token:   token,
		timeout: timeout,
	}
}

type responseEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *dto.ErrorBody  `json:"error"`
}

type agentReply struct {
	code int
	body []byte
	errs []error
}

// Me fetches the caller and its capabilities.
func (g *HTTPGateway) Me(ctx context.Context) (Session, error) {
	var resp dto.MeResponse
	if err := g.do(ctx, fiber.MethodGet, "/me", nil, &resp); err != nil {
		return Session{}, err
	}
	if resp.Actor.ID == "" {
		return Session{}, fmt.Errorf("me: missing actor id")
	}
	return Session{
		Actor: domain.Actor{
			ID:        resp.Actor.ID,
			Kind:      resp.Actor.Kind,
			CompanyID: resp.Actor.CompanyID,
			Role:      resp.Actor.Role,
		},
		Capabilities: resp.Capabilities,
	}, nil
}

// Board fetches the viewer's tickets and stats.
func (g *HTTPGateway) Board(ctx context.Context) (BoardSnapshot, error) {
	var resp dto.BoardResponse
	if err := g.do(ctx, fiber.MethodGet, "/board", nil, &resp); err != nil {
		return BoardSnapshot{}, err
	}
	tickets, stats, err := resp.ToDomain()
	if err != nil {
		return BoardSnapshot{}, fmt.Errorf("board: %w", err)
	}
	return BoardSnapshot{Tickets: tickets, Stats: stats}, nil
}

// ChangeStatus sends one authoritative status change.
func (g *HTTPGateway) ChangeStatus(ctx context.Context, change StatusChange) (StatusResult, error) {
	body := dto.ChangeStatusRequest{
		TargetStatus:    string(change.Target),
		FeedbackMessage: change.FeedbackMessage,
		CreativeMessage: change.CreativeMessage,
		Assets:          dto.NewAssetRequests(change.Assets),
	}
	var resp dto.ChangeStatusResponse
	path := "/tickets/" + url.PathEscape(change.TicketID) + "/status"
	if err := g.do(ctx, fiber.MethodPatch, path, body, &resp); err != nil {
		return StatusResult{}, err
	}
	ticket, err := resp.Ticket.ToDomain()
	if err != nil {
		return StatusResult{}, fmt.Errorf("change status: %w", err)
	}
	stats, err := resp.Stats.ToDomain()
	if err != nil {
		return StatusResult{}, fmt.Errorf("change status: %w", err)
	}
	result := StatusResult{Ticket: ticket, Stats: stats, Changed: resp.Changed}
	if resp.RevisionID != nil {
		result.RevisionID = *resp.RevisionID
	}
	return result, nil
}

// BulkChangeStatus sends a bulk status change.
func (g *HTTPGateway) BulkChangeStatus(ctx context.Context, ticketIDs []string, target domain.TicketStatus) (BulkResult, error) {
	body := dto.BulkStatusRequest{TicketIDs: ticketIDs, TargetStatus: string(target)}
	var resp dto.BulkStatusResponse
	if err := g.do(ctx, fiber.MethodPost, "/tickets/bulk-status", body, &resp); err != nil {
		return BulkResult{}, err
	}
	stats, err := resp.Stats.ToDomain()
	if err != nil {
		return BulkResult{}, fmt.Errorf("bulk status: %w", err)
	}
	if resp.SuccessCount+resp.FailCount != len(resp.Results) {
		return BulkResult{}, fmt.Errorf("bulk status: counts %d+%d do not match %d results",
			resp.SuccessCount, resp.FailCount, len(resp.Results))
	}
	result := BulkResult{
		SuccessCount: resp.SuccessCount,
		FailCount:    resp.FailCount,
		Results:      make([]BulkItem, 0, len(resp.Results)),
		Stats:        stats,
	}
	for _, item := range resp.Results {
		if item.TicketID == "" {
			return BulkResult{}, errors.New("bulk status: result without ticket id")
		}
		out := BulkItem{
			TicketID: item.TicketID,
			Success:  item.Success,
			Reason:   item.Reason,
			Changed:  item.Changed,
		}
		if item.Ticket != nil {
			ticket, err := item.Ticket.ToDomain()
			if err != nil {
				return BulkResult{}, fmt.Errorf("bulk status: %w", err)
			}
			out.Ticket = &ticket
		}
		result.Results = append(result.Results, out)
	}
	return result, nil
}

// Revisions fetches a ticket's ledger.
func (g *HTTPGateway) Revisions(ctx context.Context, ticketID string) ([]domain.Revision, error) {
	var resp []dto.RevisionResponse
	path := "/tickets/" + url.PathEscape(ticketID) + "/revisions"
	if err := g.do(ctx, fiber.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	revisions := make([]domain.Revision, 0, len(resp))
	for _, item := range resp {
		rev, err := item.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("revisions: %w", err)
		}
		revisions = append(revisions, rev)
	}
	return revisions, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(g.baseURL + path)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if g.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+g.token)
	}
	if body != nil {
		agent.JSON(body)
	}
	agent.Timeout(g.deadline(ctx))
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	done := make(chan agentReply, 1)
	go func() {
		code, raw, errs := agent.Bytes()
		done <- agentReply{code: code, body: raw, errs: errs}
	}()

	var reply agentReply
	select {
	case <-ctx.Done():
		return ctx.Err()
	case reply = <-done:
	}
	if len(reply.errs) > 0 {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(reply.errs...))
	}
	return decodeResponse(reply.code, reply.body, out)
}

func (g *HTTPGateway) deadline(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < g.timeout {
			return remaining
		}
	}
	return g.timeout
}

// decodeResponse unwraps {"data": ...} on success and turns {"error": ...}
// into a DomainError carrying the server's code.
func decodeResponse(code int, raw []byte, out any) error {
	var env responseEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && code < fiber.StatusBadRequest {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	if code >= fiber.StatusBadRequest {
		if env.Error != nil && env.Error.Code != "" {
			return apperrors.NewDomainError(env.Error.Code, env.Error.Message, code, env.Error.Details)
		}
		return apperrors.NewDomainError(apperrors.CodeInternal, fmt.Sprintf("unexpected status %d", code), code, nil)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return errors.New("decode response: missing data")
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
