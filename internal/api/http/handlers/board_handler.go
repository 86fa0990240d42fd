package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/creative-board/internal/api/dto"
	"github.com/spec-kit/creative-board/internal/auth"
	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/service"
	apperrors "github.com/spec-kit/creative-board/pkg/util/errorutil"
)

// BoardHandler serves the board, ticket and status endpoints.
type BoardHandler struct {
	service *service.WorkflowService
}

// NewBoardHandler constructs handler.
func NewBoardHandler(workflowService *service.WorkflowService) *BoardHandler {
	return &BoardHandler{service: workflowService}
}

// Me GET /me.
func (h *BoardHandler) Me(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MeResponse{
		Actor:        dto.NewActorResponse(actor),
		Capabilities: h.service.Capabilities(actor),
	}})
}

// Board GET /board.
func (h *BoardHandler) Board(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	board, err := h.service.Board(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BoardResponse{
		Tickets: dto.NewTicketResponses(board.Tickets),
		Stats:   dto.NewStatsResponse(board.Stats),
	}})
}

// CreateTicket POST /tickets.
func (h *BoardHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.CreateTicketInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(*ticket)})
}

// GetTicket GET /tickets/:id.
func (h *BoardHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(*ticket)})
}

// AssignCreative PUT /tickets/:id/assignee.
func (h *BoardHandler) AssignCreative(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignCreativeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AssignCreative(c.UserContext(), actor, c.Params("id"), req.CreativeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(*ticket)})
}

// ChangeStatus PATCH /tickets/:id/status.
func (h *BoardHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	target, err := domain.ParseTicketStatus(req.TargetStatus)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{"field": "target_status"})
	}

	result, err := h.service.ChangeStatus(c.UserContext(), actor, service.ChangeStatusInput{
		TicketID:        c.Params("id"),
		TargetStatus:    target,
		FeedbackMessage: req.FeedbackMessage,
		CreativeMessage: req.CreativeMessage,
		Assets:          dto.AssetRefs(req.Assets),
	})
	if err != nil {
		return err
	}

	resp := dto.ChangeStatusResponse{
		Ticket:  dto.NewTicketResponse(result.Ticket),
		Stats:   dto.NewStatsResponse(result.Stats),
		Changed: result.Changed,
	}
	if result.Revision != nil {
		revision := dto.NewRevisionResponse(*result.Revision)
		resp.Revision = &revision
		resp.RevisionID = &revision.ID
	}
	return c.JSON(fiber.Map{"data": resp})
}

// BulkChangeStatus POST /tickets/bulk-status.
func (h *BoardHandler) BulkChangeStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.BulkStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	target, err := domain.ParseTicketStatus(req.TargetStatus)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{"field": "target_status"})
	}

	result, err := h.service.BulkChangeStatus(c.UserContext(), actor, service.BulkChangeInput{
		TicketIDs:    req.TicketIDs,
		TargetStatus: target,
	})
	if err != nil {
		return err
	}

	resp := dto.BulkStatusResponse{
		SuccessCount: result.SuccessCount,
		FailCount:    result.FailCount,
		Results:      make([]dto.BulkResultItem, 0, len(result.Results)),
		Stats:        dto.NewStatsResponse(result.Stats),
	}
	for _, item := range result.Results {
		out := dto.BulkResultItem{
			TicketID: item.TicketID,
			Success:  item.Success,
			Reason:   item.Reason,
			Changed:  item.Changed,
		}
		if item.Ticket != nil {
			ticket := dto.NewTicketResponse(*item.Ticket)
			out.Ticket = &ticket
		}
		resp.Results = append(resp.Results, out)
	}
	return c.JSON(fiber.Map{"data": resp})
}

func currentActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}
