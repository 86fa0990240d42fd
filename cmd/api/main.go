package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/creative-board/internal/api/http"
	"github.com/spec-kit/creative-board/internal/api/http/handlers"
	"github.com/spec-kit/creative-board/internal/auth"
	"github.com/spec-kit/creative-board/internal/config"
	"github.com/spec-kit/creative-board/internal/events"
	"github.com/spec-kit/creative-board/internal/observability"
	"github.com/spec-kit/creative-board/internal/persistence"
	"github.com/spec-kit/creative-board/internal/repository"
	"github.com/spec-kit/creative-board/internal/service"
	"github.com/spec-kit/creative-board/internal/worker"
	"github.com/spec-kit/creative-board/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	policy, err := cfg.Workflow.Policy()
	if err != nil {
		logger.Fatal("failed to load workflow policy", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		Store:      repository.NewStore(pg.PoolHandle()),
		Resolver:   workflow.NewResolver(policy),
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	var fanout *events.RedisFanout
	if cfg.Events.RedisFanout {
		fanout = events.NewRedisFanout(redis.Client, cfg.Events.ChannelPrefix)
	}
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(dispatcher, notificationService, fanout)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Board:          handlers.NewBoardHandler(workflowService),
		Revisions:      handlers.NewRevisionsHandler(workflowService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
