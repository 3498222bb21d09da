package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tessera-ai/knowledge-backend/internal/handlers"
)

type RouterConfig struct {
	IngestHandler  *handlers.IngestHandler
	AssetHandler   *handlers.AssetHandler
	MetricsHandler http.Handler
	HealthCheck    gin.HandlerFunc
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-Id", "X-User-Role", "X-User-Tier", "X-Correlation-Id"},
		AllowCredentials: true,
	}))

	if cfg.HealthCheck != nil {
		router.GET("/healthz", cfg.HealthCheck)
	}
	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := router.Group("/api")
	{
		api.POST("/assets", cfg.IngestHandler.Upload)
		api.GET("/assets", cfg.AssetHandler.ListAssets)
		api.GET("/assets/:id", cfg.AssetHandler.GetAsset)
		api.GET("/assets/:id/audit", cfg.AssetHandler.GetAuditTrail)
		api.GET("/audit", cfg.AssetHandler.GetAuditByCorrelation)
		api.GET("/dead-letters", cfg.AssetHandler.ListDeadLetters)
	}

	return router
}
