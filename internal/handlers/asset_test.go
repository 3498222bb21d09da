package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tessera-ai/knowledge-backend/internal/handlers"
	"github.com/tessera-ai/knowledge-backend/internal/repos"
	"github.com/tessera-ai/knowledge-backend/internal/repos/testutil"
	"github.com/tessera-ai/knowledge-backend/internal/services"
	"github.com/tessera-ai/knowledge-backend/internal/types"
)

type assetDeps struct {
	assets repos.KnowledgeAssetRepo
	audits repos.AuditRecordRepo
	dlq    repos.DeadLetterRepo
}

func newAssetRouter(t *testing.T) (*gin.Engine, *assetDeps) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	deps := &assetDeps{
		assets: repos.NewKnowledgeAssetRepo(db, log),
		audits: repos.NewAuditRecordRepo(db, log),
		dlq:    repos.NewDeadLetterRepo(db, log),
	}
	h := handlers.NewAssetHandler(log, deps.assets, deps.audits, deps.dlq)
	r := gin.New()
	r.GET("/api/assets/:id", h.GetAsset)
	r.GET("/api/assets", h.ListAssets)
	r.GET("/api/assets/:id/audit", h.GetAuditTrail)
	r.GET("/api/audit", h.GetAuditByCorrelation)
	r.GET("/api/dead-letters", h.ListDeadLetters)
	return r, deps
}

func TestGetAsset(t *testing.T) {
	ctx := context.Background()
	r, deps := newAssetRouter(t)

	asset := &types.KnowledgeAsset{
		ID:              uuid.New(),
		TenantID:        uuid.New(),
		ContentHash:     "hash-get",
		Filename:        "manual.pdf",
		SizeBytes:       100,
		IngestionStatus: types.IngestionCompleted,
		ProgressPercent: 100,
	}
	require.NoError(t, deps.assets.Create(ctx, nil, asset))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets/"+asset.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got types.KnowledgeAsset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, asset.ID, got.ID)
	require.Equal(t, types.IngestionCompleted, got.IngestionStatus)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets/not-a-uuid", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAssetsByTenant(t *testing.T) {
	ctx := context.Background()
	r, deps := newAssetRouter(t)

	tenant := uuid.New()
	for i, hash := range []string{"h1", "h2"} {
		require.NoError(t, deps.assets.Create(ctx, nil, &types.KnowledgeAsset{
			ID:              uuid.New(),
			TenantID:        tenant,
			ContentHash:     hash,
			Filename:        "doc.pdf",
			SizeBytes:       int64(i + 1),
			IngestionStatus: types.IngestionPending,
		}))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets?tenant_id="+tenant.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []types.KnowledgeAsset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditTrailEndpoints(t *testing.T) {
	ctx := context.Background()
	r, deps := newAssetRouter(t)

	tenant := uuid.New()
	doc := uuid.New()
	base := time.Now().Add(-time.Minute)
	for i, status := range []string{types.AuditStatusPending, types.AuditStatusSuccess} {
		require.NoError(t, deps.audits.Append(ctx, nil, &types.AuditRecord{
			TenantID:      tenant,
			CorrelationID: "corr-http",
			DocID:         doc,
			Status:        status,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets/"+doc.String()+"/audit", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var trail []types.AuditRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trail))
	require.Len(t, trail, 2)
	require.Equal(t, types.AuditStatusPending, trail[0].Status)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit?correlation_id=corr-http", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trail))
	require.Len(t, trail, 2)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDeadLetters(t *testing.T) {
	ctx := context.Background()
	r, deps := newAssetRouter(t)

	tenant := uuid.New()
	require.NoError(t, deps.dlq.Create(ctx, nil, &types.DeadLetterEntry{
		TenantID:      tenant,
		DocID:         uuid.New(),
		CorrelationID: "corr-dlq-http",
		JobType:       services.JobTypeAnalyzeAsset,
		FailureReason: "engine timeout",
		RetryCount:    3,
		LastAttempt:   time.Now(),
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dead-letters?tenant_id="+tenant.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []types.DeadLetterEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "engine timeout", entries[0].FailureReason)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dead-letters?tenant_id="+tenant.String()+"&limit=0", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
