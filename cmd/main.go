package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/tessera-ai/knowledge-backend/internal/db"
	"github.com/tessera-ai/knowledge-backend/internal/handlers"
	"github.com/tessera-ai/knowledge-backend/internal/jobs"
	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/observability"
	"github.com/tessera-ai/knowledge-backend/internal/repos"
	"github.com/tessera-ai/knowledge-backend/internal/server"
	"github.com/tessera-ai/knowledge-backend/internal/services"
	"github.com/tessera-ai/knowledge-backend/internal/temporalx"
	"github.com/tessera-ai/knowledge-backend/internal/utils"
)

func main() {
	// Logger
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
	log.Info("Setting up repos...")
	assetRepo := repos.NewKnowledgeAssetRepo(thePG, log)
	auditRepo := repos.NewAuditRecordRepo(thePG, log)
	dlqRepo := repos.NewDeadLetterRepo(thePG, log)

	// Metrics
	metrics := observability.NewMetrics()

	// Clients
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}

	// Job queue; missing Temporal degrades prepare to "accepted, not queued".
	temporalClient, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Could not dial Temporal", "error", err)
		os.Exit(1)
	}
	queue := jobs.NewTemporalQueue(log, temporalClient, jobs.TaskQueue(log))
	if temporalClient != nil {
		defer temporalClient.Close()
	}

	// Services
	log.Info("Setting up services...")
	gate := services.NewPermissionGate(services.DefaultPermissionConfig(), log)
	ingestService := services.NewIngestService(thePG, log, assetRepo, auditRepo, bucketService, queue, gate, metrics)

	// Handlers
	ingestHandler := handlers.NewIngestHandler(log, ingestService)
	assetHandler := handlers.NewAssetHandler(log, assetRepo, auditRepo, dlqRepo)

	// Router
	router := server.NewRouter(server.RouterConfig{
		IngestHandler:  ingestHandler,
		AssetHandler:   assetHandler,
		MetricsHandler: metrics.Handler(),
		HealthCheck: func(c *gin.Context) {
			if err := postgresService.Ping(); err != nil {
				c.String(http.StatusServiceUnavailable, "db unavailable")
				return
			}
			c.String(http.StatusOK, "ok")
		},
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
