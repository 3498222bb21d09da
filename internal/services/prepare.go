package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tessera-ai/knowledge-backend/internal/ingest"
	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/observability"
	"github.com/tessera-ai/knowledge-backend/internal/repos"
	"github.com/tessera-ai/knowledge-backend/internal/types"
)

// MaxUploadBytes caps a single submission at 50 MB.
const MaxUploadBytes = 50 << 20

const (
	uploadAttempts    = 3
	uploadBackoffBase = 500 * time.Millisecond
)

type PrepareInput struct {
	Data            []byte
	Filename        string
	TenantID        uuid.UUID
	Industry        string
	DocumentContext string
	User            UserContext
	CorrelationID   string
}

type PrepareResult struct {
	Success       bool      `json:"success"`
	DocID         uuid.UUID `json:"doc_id"`
	JobID         string    `json:"job_id,omitempty"`
	IsDuplicate   bool      `json:"is_duplicate,omitempty"`
	CorrelationID string    `json:"correlation_id"`
	Message       string    `json:"message"`
}

// IngestService is the synchronous half of the pipeline: dedup, store,
// persist PENDING, enqueue.
type IngestService interface {
	Prepare(ctx context.Context, in PrepareInput) (*PrepareResult, error)
}

type ingestService struct {
	db        *gorm.DB
	log       *logger.Logger
	assetRepo repos.KnowledgeAssetRepo
	auditRepo repos.AuditRecordRepo
	bucket    BucketService
	queue     JobQueue
	gate      PermissionGate
	metrics   *observability.Metrics
}

func NewIngestService(
	db *gorm.DB,
	baseLog *logger.Logger,
	assetRepo repos.KnowledgeAssetRepo,
	auditRepo repos.AuditRecordRepo,
	bucket BucketService,
	queue JobQueue,
	gate PermissionGate,
	metrics *observability.Metrics,
) IngestService {
	return &ingestService{
		db:        db,
		log:       baseLog.With("service", "IngestService"),
		assetRepo: assetRepo,
		auditRepo: auditRepo,
		bucket:    bucket,
		queue:     queue,
		gate:      gate,
		metrics:   metrics,
	}
}

func (s *ingestService) Prepare(ctx context.Context, in PrepareInput) (*PrepareResult, error) {
	const op = "IngestService.Prepare"

	if !s.gate.Can(in.User, CapabilityIngest) {
		return nil, ingest.Forbidden(op, "user %s may not ingest for tenant %s", in.User.UserID, in.TenantID)
	}
	if in.TenantID == uuid.Nil {
		return nil, ingest.Validation(op, "tenant id is required")
	}
	if len(in.Data) == 0 {
		return nil, ingest.Validation(op, "empty file")
	}
	if len(in.Data) > MaxUploadBytes {
		s.metrics.RecordPrepare("rejected")
		return nil, ingest.Validation(op, "file size %d exceeds limit of %d bytes", len(in.Data), MaxUploadBytes)
	}

	correlationID := in.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := s.log.With("tenant_id", in.TenantID, "correlation_id", correlationID, "filename", in.Filename)

	contentHash := ingest.ContentHash(in.Data)

	existing, err := s.assetRepo.GetByTenantAndHash(ctx, nil, in.TenantID, contentHash)
	if err != nil {
		return nil, ingest.Infra(op, fmt.Errorf("dedup lookup: %w", err))
	}
	if existing != nil {
		log.Info("Duplicate submission resolved to existing asset", "asset_id", existing.ID, "status", existing.IngestionStatus)
		s.appendAudit(ctx, in.TenantID, correlationID, in.User, existing.ID, types.AuditStatusDuplicate, map[string]interface{}{
			"content_hash":    contentHash,
			"existing_status": existing.IngestionStatus,
		})
		s.metrics.RecordPrepare("duplicate")
		return &PrepareResult{
			Success:       true,
			DocID:         existing.ID,
			IsDuplicate:   true,
			CorrelationID: correlationID,
			Message:       "duplicate content, resolved to existing asset",
		}, nil
	}

	assetID := uuid.New()
	storageKey := fmt.Sprintf("assets/%s/%s", in.TenantID, assetID)

	storageURL, err := s.uploadWithRetry(ctx, log, storageKey, in.Data)
	if err != nil {
		s.metrics.RecordPrepare("failed")
		return nil, ingest.Infra(op, fmt.Errorf("upload after %d attempts: %w", uploadAttempts, err))
	}

	asset := &types.KnowledgeAsset{
		ID:              assetID,
		TenantID:        in.TenantID,
		ContentHash:     contentHash,
		Filename:        in.Filename,
		SizeBytes:       int64(len(in.Data)),
		StorageURL:      storageURL,
		StorageObjectID: storageKey,
		Industry:        in.Industry,
		DocumentContext: in.DocumentContext,
		IngestionStatus: types.IngestionPending,
		ProgressPercent: 0,
		Attempts:        0,
	}
	if err := s.assetRepo.Create(ctx, nil, asset); err != nil {
		return nil, ingest.Infra(op, fmt.Errorf("create asset record: %w", err))
	}
	log.Info("Knowledge asset created", "asset_id", assetID, "size_bytes", asset.SizeBytes)

	s.appendAudit(ctx, in.TenantID, correlationID, in.User, assetID, types.AuditStatusPending, map[string]interface{}{
		"content_hash": contentHash,
		"size_bytes":   asset.SizeBytes,
		"storage_key":  storageKey,
	})

	// Enqueue is best effort. A queue outage must not lose the stored asset,
	// so the call still succeeds, just without a job id; the reconciler (or an
	// operator) picks the PENDING row up later.
	enq, err := s.queue.Enqueue(ctx, JobTypeAnalyzeAsset, AnalysisJobPayload{
		AssetID:       assetID,
		TenantID:      in.TenantID,
		CorrelationID: correlationID,
		User:          in.User,
		Environment:   "",
	})
	if err != nil {
		log.Warn("Enqueue failed, asset left PENDING for recovery", "asset_id", assetID, "error", err)
		s.metrics.RecordPrepare("degraded")
		return &PrepareResult{
			Success:       true,
			DocID:         assetID,
			CorrelationID: correlationID,
			Message:       "accepted, but queuing is degraded; analysis will be retried",
		}, nil
	}

	s.metrics.RecordPrepare("created")
	return &PrepareResult{
		Success:       true,
		DocID:         assetID,
		JobID:         enq.JobID,
		CorrelationID: correlationID,
		Message:       "accepted",
	}, nil
}

func (s *ingestService) uploadWithRetry(ctx context.Context, log *logger.Logger, key string, data []byte) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		url, err := s.bucket.Upload(ctx, key, data)
		if err == nil {
			return url, nil
		}
		lastErr = err
		log.Warn("Storage upload failed", "storage_key", key, "attempt", attempt, "error", err)
		if attempt < uploadAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(uploadBackoffBase << (attempt - 1)):
			}
		}
	}
	return "", lastErr
}

func (s *ingestService) appendAudit(ctx context.Context, tenantID uuid.UUID, correlationID string, user UserContext, docID uuid.UUID, status string, details map[string]interface{}) {
	blob, err := json.Marshal(details)
	if err != nil {
		blob = []byte("{}")
	}
	rec := &types.AuditRecord{
		ID:            uuid.New(),
		TenantID:      tenantID,
		CorrelationID: correlationID,
		PerformedBy:   user.UserID.String(),
		DocID:         docID,
		Status:        status,
		Details:       datatypes.JSON(blob),
	}
	if err := s.auditRepo.Append(ctx, nil, rec); err != nil {
		// Audit is advisory during preparation; the asset write already landed.
		s.log.Error("Failed to append audit record", "doc_id", docID, "status", status, "error", err)
	}
}
