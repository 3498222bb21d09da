package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/repos"
)

// AssetHandler is the read surface for the excluded UI layer: asset status,
// audit trail, dead letters.
type AssetHandler struct {
	log       *logger.Logger
	assetRepo repos.KnowledgeAssetRepo
	auditRepo repos.AuditRecordRepo
	dlqRepo   repos.DeadLetterRepo
}

func NewAssetHandler(baseLog *logger.Logger, assetRepo repos.KnowledgeAssetRepo, auditRepo repos.AuditRecordRepo, dlqRepo repos.DeadLetterRepo) *AssetHandler {
	return &AssetHandler{
		log:       baseLog.With("handler", "AssetHandler"),
		assetRepo: assetRepo,
		auditRepo: auditRepo,
		dlqRepo:   dlqRepo,
	}
}

// GET /api/assets/:id
func (h *AssetHandler) GetAsset(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("bad asset id: %w", err))
		return
	}
	asset, err := h.assetRepo.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "infrastructure", err)
		return
	}
	if asset == nil {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("asset %s does not exist", id))
		return
	}
	RespondOK(c, asset)
}

// GET /api/assets?tenant_id=
func (h *AssetHandler) ListAssets(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("bad tenant_id: %w", err))
		return
	}
	assets, err := h.assetRepo.ListByTenant(c.Request.Context(), nil, tenantID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "infrastructure", err)
		return
	}
	RespondOK(c, assets)
}

// GET /api/assets/:id/audit
func (h *AssetHandler) GetAuditTrail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("bad asset id: %w", err))
		return
	}
	records, err := h.auditRepo.ListByDoc(c.Request.Context(), nil, id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "infrastructure", err)
		return
	}
	RespondOK(c, records)
}

// GET /api/audit?correlation_id=
func (h *AssetHandler) GetAuditByCorrelation(c *gin.Context) {
	correlationID := c.Query("correlation_id")
	if correlationID == "" {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("correlation_id is required"))
		return
	}
	records, err := h.auditRepo.ListByCorrelation(c.Request.Context(), nil, correlationID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "infrastructure", err)
		return
	}
	RespondOK(c, records)
}

// GET /api/dead-letters?tenant_id=&limit=
func (h *AssetHandler) ListDeadLetters(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("bad tenant_id: %w", err))
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit < 1 {
			RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("bad limit %q", raw))
			return
		}
	}
	entries, err := h.dlqRepo.ListByTenant(c.Request.Context(), nil, tenantID, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "infrastructure", err)
		return
	}
	RespondOK(c, entries)
}
