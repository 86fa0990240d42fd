package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/creative-board/internal/api/dto"
	"github.com/spec-kit/creative-board/internal/api/http/handlers"
	"github.com/spec-kit/creative-board/internal/auth"
	"github.com/spec-kit/creative-board/internal/domain"
	"github.com/spec-kit/creative-board/internal/events"
	"github.com/spec-kit/creative-board/internal/observability"
	"github.com/spec-kit/creative-board/internal/repository/repotest"
	"github.com/spec-kit/creative-board/internal/service"
	apperrors "github.com/spec-kit/creative-board/pkg/util/errorutil"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *dto.ErrorBody  `json:"error"`
}

type testAPI struct {
	app    *fiber.App
	store  *repotest.Store
	tokens *auth.TokenManager
}

const company = "company-1"

var (
	creativeActor = domain.Actor{ID: "creative-1", Kind: domain.ActorKindCreative, CompanyID: company}
	ownerActor    = domain.Actor{ID: "owner-1", Kind: domain.ActorKindCustomer, CompanyID: company, Role: domain.CompanyRoleOwner}
	memberActor   = domain.Actor{ID: "member-1", Kind: domain.ActorKindCustomer, CompanyID: company, Role: domain.CompanyRoleMember}
)

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := repotest.NewStore()
	tokens := auth.NewTokenManager("test-secret", "creative-board", 10)

	svc := service.NewWorkflowService(service.WorkflowDependencies{
		Store:      store,
		Dispatcher: events.NewInMemoryDispatcher(logger),
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("creative-board", "test", okPinger{}, okPinger{}, metrics),
		Board:          handlers.NewBoardHandler(svc),
		Revisions:      handlers.NewRevisionsHandler(svc),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return &testAPI{app: app, store: store, tokens: tokens}
}

func (api *testAPI) do(t *testing.T, actor *domain.Actor, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if actor != nil {
		token, _, err := api.tokens.GenerateToken(*actor)
		require.NoError(t, err)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (api *testAPI) seed(status domain.TicketStatus) domain.Ticket {
	assignee := creativeActor.ID
	return api.store.SeedTicket(domain.Ticket{
		CompanyID:          company,
		Title:              "Launch banner",
		Status:             status,
		CreatedByID:        ownerActor.ID,
		AssignedCreativeID: &assignee,
	})
}

func TestHealthAndAuthentication(t *testing.T) {
	api := newTestAPI(t)

	status, _ := api.do(t, nil, fiber.MethodGet, "/health/live", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, env := api.do(t, nil, fiber.MethodGet, "/api/v1/board", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, env = api.do(t, &ownerActor, fiber.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, env = api.do(t, nil, fiber.MethodGet, "/health/metrics", nil)
	assert.Equal(t, fiber.StatusOK, status)
	var snap observability.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.NotEmpty(t, snap.Requests)
}

func TestMeReportsCapabilities(t *testing.T) {
	api := newTestAPI(t)

	status, env := api.do(t, &memberActor, fiber.MethodGet, "/api/v1/me", nil)
	require.Equal(t, fiber.StatusOK, status)
	var me dto.MeResponse
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, memberActor.ID, me.Actor.ID)
	assert.False(t, me.Capabilities.CanMoveOnBoard)

	status, env = api.do(t, &ownerActor, fiber.MethodGet, "/api/v1/me", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.True(t, me.Capabilities.CanMarkDone)
}

func TestStatusEndpointFlow(t *testing.T) {
	api := newTestAPI(t)
	ticket := api.seed(domain.TicketStatusInProgress)
	path := "/api/v1/tickets/" + ticket.ID + "/status"

	status, env := api.do(t, &creativeActor, fiber.MethodPatch, path, dto.ChangeStatusRequest{
		TargetStatus:    "in_review",
		CreativeMessage: "v1 ready",
		Assets: []dto.AssetRequest{
			{StorageKey: "k/1", FileName: "1.png", MimeType: "image/png", SizeBytes: 1},
			{StorageKey: "k/2", FileName: "2.png", MimeType: "image/png", SizeBytes: 2},
		},
	})
	require.Equal(t, fiber.StatusOK, status, "%+v", env.Error)
	var changed dto.ChangeStatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &changed))
	assert.True(t, changed.Changed)
	assert.Equal(t, domain.TicketStatusInReview, changed.Ticket.Status)
	require.NotNil(t, changed.RevisionID)
	require.NotNil(t, changed.Revision)
	assert.Equal(t, 1, changed.Revision.Version)
	assert.Len(t, changed.Revision.Assets, 2)
	assert.Equal(t, 1, changed.Stats.ByStatus["IN_REVIEW"])

	status, env = api.do(t, &memberActor, fiber.MethodPatch, path, dto.ChangeStatusRequest{TargetStatus: "DONE"})
	assert.Equal(t, fiber.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
	assert.Contains(t, env.Error.Message, "insufficient permission")

	status, env = api.do(t, &ownerActor, fiber.MethodPatch, path, dto.ChangeStatusRequest{TargetStatus: "IN_PROGRESS"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	status, env = api.do(t, &ownerActor, fiber.MethodPatch, path, dto.ChangeStatusRequest{TargetStatus: "ARCHIVED"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	status, env = api.do(t, &creativeActor, fiber.MethodPatch, path, dto.ChangeStatusRequest{TargetStatus: "DONE"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ILLEGAL_TRANSITION", env.Error.Code)

	status, env = api.do(t, &ownerActor, fiber.MethodPatch, path, dto.ChangeStatusRequest{
		TargetStatus:    "IN_PROGRESS",
		FeedbackMessage: "make it bigger",
	})
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &changed))
	assert.True(t, changed.Ticket.LatestRevisionHasFeedback)

	status, env = api.do(t, &ownerActor, fiber.MethodGet, "/api/v1/tickets/"+ticket.ID+"/revisions", nil)
	require.Equal(t, fiber.StatusOK, status)
	var revisions []dto.RevisionResponse
	require.NoError(t, json.Unmarshal(env.Data, &revisions))
	require.Len(t, revisions, 1)
	require.NotNil(t, revisions[0].FeedbackMessage)
	assert.Equal(t, "make it bigger", *revisions[0].FeedbackMessage)
}

func TestBulkEndpoint(t *testing.T) {
	api := newTestAPI(t)
	ids := []string{
		api.seed(domain.TicketStatusInProgress).ID,
		api.seed(domain.TicketStatusTodo).ID,
		api.seed(domain.TicketStatusDone).ID,
	}

	status, env := api.do(t, &ownerActor, fiber.MethodPost, "/api/v1/tickets/bulk-status", dto.BulkStatusRequest{
		TicketIDs:    ids,
		TargetStatus: "TODO",
	})
	require.Equal(t, fiber.StatusOK, status, "%+v", env.Error)
	var bulk dto.BulkStatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &bulk))
	assert.Equal(t, 2, bulk.SuccessCount)
	assert.Equal(t, 1, bulk.FailCount)
	assert.Len(t, bulk.Results, 3)
	assert.Equal(t, 2, bulk.Stats.ByStatus["TODO"])

	status, env = api.do(t, &ownerActor, fiber.MethodPost, "/api/v1/tickets/bulk-status", dto.BulkStatusRequest{TargetStatus: "TODO"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestTicketCreationAndAssignment(t *testing.T) {
	api := newTestAPI(t)

	status, env := api.do(t, &creativeActor, fiber.MethodPost, "/api/v1/tickets", dto.CreateTicketRequest{Title: "Brochure"})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = api.do(t, &ownerActor, fiber.MethodPost, "/api/v1/tickets", dto.CreateTicketRequest{Title: "Brochure", Priority: domain.TicketPriorityUrgent})
	require.Equal(t, fiber.StatusCreated, status, "%+v", env.Error)
	var created dto.TicketResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, domain.TicketStatusTodo, created.Status)
	require.NotNil(t, created.CompanyTicketNumber)
	assert.Equal(t, 1, *created.CompanyTicketNumber)

	status, _ = api.do(t, &creativeActor, fiber.MethodGet, "/api/v1/tickets/"+created.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, env = api.do(t, &ownerActor, fiber.MethodPut, "/api/v1/tickets/"+created.ID+"/assignee", dto.AssignCreativeRequest{CreativeID: &creativeActor.ID})
	require.Equal(t, fiber.StatusOK, status, "%+v", env.Error)

	status, env = api.do(t, &creativeActor, fiber.MethodGet, "/api/v1/board", nil)
	require.Equal(t, fiber.StatusOK, status)
	var board dto.BoardResponse
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board.Tickets, 1)
	assert.Equal(t, created.ID, board.Tickets[0].ID)
	assert.Equal(t, 1, board.Stats.Total)
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadinessReportsEachDependency(t *testing.T) {
	metrics := observability.NewMetrics()
	probe := func(postgres, redis handlers.Pinger) (int, map[string]any) {
		app := fiber.New()
		app.Get("/health/ready", handlers.NewHealthHandler("creative-board", "test", postgres, redis, metrics).Ready)
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health/ready", nil))
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	status, body := probe(okPinger{}, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{"postgres": "ok", "redis": "not configured"}, body["dependencies"])

	status, body = probe(okPinger{}, downPinger{})
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errBody["code"])
	assert.Equal(t, "connection refused", errBody["details"].(map[string]any)["redis"])
}

func TestMalformedTicketIDIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	api.store.FailTicketLookups(&pgconn.PgError{Code: apperrors.PgInvalidTextRepresentation})

	status, env := api.do(t, &ownerActor, fiber.MethodPatch, "/api/v1/tickets/abc/status", map[string]any{"target_status": "DONE"})
	assert.Equal(t, fiber.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, env = api.do(t, &ownerActor, fiber.MethodGet, "/api/v1/tickets/abc", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}
