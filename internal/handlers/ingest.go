package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/services"
)

type IngestHandler struct {
	log           *logger.Logger
	ingestService services.IngestService
}

func NewIngestHandler(baseLog *logger.Logger, ingestService services.IngestService) *IngestHandler {
	return &IngestHandler{
		log:           baseLog.With("handler", "IngestHandler"),
		ingestService: ingestService,
	}
}

// POST /api/assets
// Multipart upload. Identity fields arrive as headers set by the upstream
// gateway; tenant/industry metadata as form fields.
func (h *IngestHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("missing file: %w", err))
		return
	}
	if fileHeader.Size > services.MaxUploadBytes {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("file size %d exceeds limit of %d bytes", fileHeader.Size, services.MaxUploadBytes))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "infrastructure", fmt.Errorf("read upload: %w", err))
		return
	}

	tenantID, err := uuid.Parse(c.PostForm("tenant_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("bad tenant_id: %w", err))
		return
	}

	user, err := userFromHeaders(c, tenantID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}

	result, err := h.ingestService.Prepare(c.Request.Context(), services.PrepareInput{
		Data:            data,
		Filename:        fileHeader.Filename,
		TenantID:        tenantID,
		Industry:        c.PostForm("industry"),
		DocumentContext: c.PostForm("document_context"),
		User:            user,
		CorrelationID:   c.GetHeader("X-Correlation-Id"),
	})
	if err != nil {
		RespondIngestError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

func userFromHeaders(c *gin.Context, tenantID uuid.UUID) (services.UserContext, error) {
	rawUser := c.GetHeader("X-User-Id")
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return services.UserContext{}, fmt.Errorf("bad X-User-Id header: %w", err)
	}
	return services.UserContext{
		UserID:   userID,
		TenantID: tenantID,
		Role:     c.GetHeader("X-User-Role"),
		Tier:     c.GetHeader("X-User-Tier"),
	}, nil
}
