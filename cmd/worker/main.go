package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.temporal.io/sdk/worker"

	"github.com/tessera-ai/knowledge-backend/internal/clients/openai"
	"github.com/tessera-ai/knowledge-backend/internal/clients/pinecone"
	redisclient "github.com/tessera-ai/knowledge-backend/internal/clients/redis"
	"github.com/tessera-ai/knowledge-backend/internal/db"
	"github.com/tessera-ai/knowledge-backend/internal/ingest"
	"github.com/tessera-ai/knowledge-backend/internal/jobs"
	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/observability"
	"github.com/tessera-ai/knowledge-backend/internal/repos"
	"github.com/tessera-ai/knowledge-backend/internal/services"
	"github.com/tessera-ai/knowledge-backend/internal/temporalx"
	"github.com/tessera-ai/knowledge-backend/internal/utils"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	assetRepo := repos.NewKnowledgeAssetRepo(thePG, log)
	auditRepo := repos.NewAuditRecordRepo(thePG, log)
	dlqRepo := repos.NewDeadLetterRepo(thePG, log)

	// Metrics + transition validator
	metrics := observability.NewMetrics()
	validator := ingest.NewTransitionValidator(log, metrics)

	// Clients
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	openaiClient, err := openai.New(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}
	pineconeClient, err := pinecone.New(log)
	if err != nil {
		log.Error("Could not init Pinecone client", "error", err)
		os.Exit(1)
	}
	indexer := pinecone.NewIndexer(log, pineconeClient, openaiClient)

	// Progress bus is optional; without redis the executor still persists
	// progress, it just stops publishing live events.
	var progressBus redisclient.ProgressBus
	if bus, err := redisclient.NewProgressBus(log); err != nil {
		log.Warn("Progress bus disabled", "error", err)
	} else {
		progressBus = bus
		defer bus.Close()
	}

	// Services
	gate := services.NewPermissionGate(services.DefaultPermissionConfig(), log)
	analysisService := services.NewAnalysisService(
		thePG,
		log,
		assetRepo,
		auditRepo,
		dlqRepo,
		bucketService,
		openaiClient,
		indexer,
		gate,
		validator,
		metrics,
	)

	// Temporal
	temporalClient, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Could not dial Temporal", "error", err)
		os.Exit(1)
	}
	if temporalClient == nil {
		log.Error("TEMPORAL_ADDRESS is required for the worker")
		os.Exit(1)
	}
	defer temporalClient.Close()

	queue := jobs.NewTemporalQueue(log, temporalClient, jobs.TaskQueue(log))
	reconciler := services.NewReconcileService(thePG, log, assetRepo, queue, validator)

	// Periodic sweep for assets stored but never queued.
	reconcileCtx, cancelReconcile := context.WithCancel(context.Background())
	defer cancelReconcile()
	go runReconciler(reconcileCtx, log, reconciler)

	acts := jobs.NewActivities(log, analysisService, progressBus)
	runner, err := jobs.NewRunner(log, temporalClient, jobs.TaskQueue(log), acts)
	if err != nil {
		log.Error("Could not init worker runner", "error", err)
		os.Exit(1)
	}
	if err := runner.Run(worker.InterruptCh()); err != nil {
		log.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
}

func runReconciler(ctx context.Context, log *logger.Logger, reconciler services.ReconcileService) {
	interval := time.Duration(utils.GetEnvAsInt("RECONCILE_INTERVAL_SECONDS", 300, log)) * time.Second
	staleAfter := time.Duration(utils.GetEnvAsInt("RECONCILE_STALE_AFTER_SECONDS", 900, log)) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := reconciler.RequeueStalePending(ctx, staleAfter)
			if err != nil {
				log.Warn("Reconcile sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info("Reconcile sweep requeued stale assets", "count", n)
			}
		}
	}
}
