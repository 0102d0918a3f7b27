package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/livedocs-app/livedocs/internal/access"
	"github.com/livedocs-app/livedocs/internal/app"
	"github.com/livedocs-app/livedocs/internal/collab"
	"github.com/livedocs-app/livedocs/internal/directory"
	"github.com/livedocs-app/livedocs/internal/documents"
	"github.com/livedocs-app/livedocs/internal/observability"
	"github.com/livedocs-app/livedocs/internal/platform/cache"
	"github.com/livedocs-app/livedocs/internal/policy"
	"github.com/livedocs-app/livedocs/internal/recon"
	"github.com/livedocs-app/livedocs/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	policyClient := policy.NewClient(policy.Config{
		FactsURL:    cfg.PolicyFactsURL,
		PDPURL:      cfg.PolicyPDPURL,
		APIKey:      cfg.PolicyAPIKey,
		Project:     cfg.PolicyProject,
		Environment: cfg.PolicyEnvironment,
	}, nil)
	collabClient := collab.NewClient(cfg.CollabAPIURL, cfg.CollabAPIKey, nil)
	directoryClient := directory.NewClient(cfg.DirectoryAPIURL, cfg.DirectoryAPIKey, nil)

	existence := access.NewExistenceCache(policyClient)
	orchestrator := access.NewOrchestrator(access.OrchestratorConfig{
		Policy:      policyClient,
		Cache:       existence,
		Logger:      logger,
		SettleDelay: cfg.AccessSettleDelay,
	})
	gateway := access.NewGateway(policyClient, logger, metrics)

	queueClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	service := documents.NewService(documents.ServiceConfig{
		Authorizer: gateway,
		RoleSync:   orchestrator,
		Revoker:    policyClient,
		Rooms:      collabClient,
		Dispatcher: documents.NewQueueDispatcher(queueClient),
		Recon:      recon.NewStore(redisClient),
		Directory:  directoryClient,
		Metrics:    metrics,
		Logger:     logger,
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		DocumentsHandler:   documents.NewHandler(logger, service),
		PermissionsHandler: access.NewPermissionsHandler(gateway),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
