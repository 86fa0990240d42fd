package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/creative-board/internal/api/http/handlers"
	"github.com/spec-kit/creative-board/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Board          *handlers.BoardHandler
	Revisions      *handlers.RevisionsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAnyActor())
	api.Get("/me", cfg.Board.Me)
	api.Get("/board", cfg.Board.Board)

	tickets := api.Group("/tickets")
	tickets.Post("/", auth.RequireCustomer(), cfg.Board.CreateTicket)
	tickets.Post("/bulk-status", cfg.Board.BulkChangeStatus)
	tickets.Get("/:id", cfg.Board.GetTicket)
	tickets.Put("/:id/assignee", auth.RequireCustomer(), cfg.Board.AssignCreative)
	tickets.Patch("/:id/status", cfg.Board.ChangeStatus)
	tickets.Get("/:id/revisions", cfg.Revisions.List)
	tickets.Post("/:id/revisions/:revisionId/assets", auth.RequireCreative(), cfg.Revisions.AttachAssets)
}
