package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/creative-board/internal/api/dto"
	"github.com/spec-kit/creative-board/internal/service"
	apperrors "github.com/spec-kit/creative-board/pkg/util/errorutil"
)

// RevisionsHandler serves the revision ledger.
type RevisionsHandler struct {
	service *service.WorkflowService
}

// NewRevisionsHandler constructs handler.
func NewRevisionsHandler(workflowService *service.WorkflowService) *RevisionsHandler {
	return &RevisionsHandler{service: workflowService}
}

// List GET /tickets/:id/revisions.
func (h *RevisionsHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	revisions, err := h.service.ListRevisions(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.RevisionResponse, 0, len(revisions))
	for _, rev := range revisions {
		items = append(items, dto.NewRevisionResponse(rev))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AttachAssets POST /tickets/:id/revisions/:revisionId/assets.
func (h *RevisionsHandler) AttachAssets(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.AttachAssetsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	revision, err := h.service.AttachAssets(c.UserContext(), actor, c.Params("id"), c.Params("revisionId"), dto.AssetRefs(req.Assets))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewRevisionResponse(*revision)})
}
