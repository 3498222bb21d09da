package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
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

type ExecuteInput struct {
	AssetID       uuid.UUID
	CorrelationID string
	User          UserContext
	Environment   string
	MaskPII       bool
	Reporter      ProgressReporter
}

type ExecuteResult struct {
	Success       bool   `json:"success"`
	CorrelationID string `json:"correlation_id"`
	Chunks        int    `json:"chunks"`
}

// AnalysisService is the asynchronous half of the pipeline, invoked by the
// job-queue worker. It owns every status mutation after PENDING.
type AnalysisService interface {
	Execute(ctx context.Context, in ExecuteInput) (*ExecuteResult, error)
}

type analysisService struct {
	db        *gorm.DB
	log       *logger.Logger
	assetRepo repos.KnowledgeAssetRepo
	auditRepo repos.AuditRecordRepo
	dlqRepo   repos.DeadLetterRepo
	bucket    BucketService
	engine    AnalysisEngine
	indexer   Indexer
	gate      PermissionGate
	validator *ingest.TransitionValidator
	metrics   *observability.Metrics
}

func NewAnalysisService(
	db *gorm.DB,
	baseLog *logger.Logger,
	assetRepo repos.KnowledgeAssetRepo,
	auditRepo repos.AuditRecordRepo,
	dlqRepo repos.DeadLetterRepo,
	bucket BucketService,
	engine AnalysisEngine,
	indexer Indexer,
	gate PermissionGate,
	validator *ingest.TransitionValidator,
	metrics *observability.Metrics,
) AnalysisService {
	return &analysisService{
		db:        db,
		log:       baseLog.With("service", "AnalysisService"),
		assetRepo: assetRepo,
		auditRepo: auditRepo,
		dlqRepo:   dlqRepo,
		bucket:    bucket,
		engine:    engine,
		indexer:   indexer,
		gate:      gate,
		validator: validator,
		metrics:   metrics,
	}
}

// execState is the mutable bookkeeping one execution carries between the
// happy path and the failure path.
type execState struct {
	attempts int
	version  int
	progress int
}

func (s *analysisService) Execute(ctx context.Context, in ExecuteInput) (*ExecuteResult, error) {
	const op = "AnalysisService.Execute"
	start := time.Now()

	reporter := in.Reporter
	if reporter == nil {
		reporter = NoopProgressReporter()
	}

	if !s.gate.Can(in.User, CapabilityIngest) {
		return nil, ingest.Forbidden(op, "user %s may not analyze for tenant %s", in.User.UserID, in.User.TenantID)
	}

	asset, err := s.assetRepo.GetByID(ctx, nil, in.AssetID)
	if err != nil {
		return nil, ingest.Infra(op, fmt.Errorf("load asset: %w", err))
	}
	if asset == nil {
		return nil, ingest.NotFound(op, "knowledge asset %s does not exist", in.AssetID)
	}

	// Guards against double-processing from a duplicate dequeue. The versioned
	// PROCESSING write below closes the remaining race window.
	if asset.IngestionStatus != types.IngestionQueued && asset.IngestionStatus != types.IngestionPending {
		s.metrics.RecordExecution("rejected")
		return nil, ingest.Validation(op, "asset %s is %s, expected QUEUED or PENDING", asset.ID, asset.IngestionStatus)
	}

	log := s.log.With("asset_id", asset.ID, "tenant_id", asset.TenantID, "correlation_id", in.CorrelationID)
	st := &execState{
		attempts: asset.Attempts + 1,
		version:  asset.Version,
		progress: asset.ProgressPercent,
	}

	if err := s.validator.Validate(asset.IngestionStatus, types.IngestionProcessing); err != nil {
		return nil, err
	}
	err = s.assetRepo.UpdateStatusVersioned(ctx, nil, asset.ID, st.version, map[string]interface{}{
		"ingestion_status": types.IngestionProcessing,
		"attempts":         st.attempts,
		"environment":      in.Environment,
		"error_message":    "",
	})
	if errors.Is(err, repos.ErrVersionConflict) {
		s.metrics.RecordExecution("rejected")
		return nil, ingest.Validation(op, "asset %s was claimed by another worker", asset.ID)
	}
	if err != nil {
		return nil, ingest.Infra(op, fmt.Errorf("persist PROCESSING: %w", err))
	}
	st.version++
	log.Info("Analysis started", "attempt", st.attempts)

	outcome, runErr := s.runStages(ctx, log, asset, in, st, reporter)
	if runErr != nil {
		return nil, s.quarantine(ctx, log, asset, in, st, start, runErr)
	}

	s.appendAudit(ctx, asset, in, types.AuditStatusSuccess, map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
		"chunks":      outcome.chunks,
		"attempt":     st.attempts,
	})
	s.metrics.RecordExecution("completed")
	s.metrics.ObserveAnalysisDuration(time.Since(start).Seconds())
	log.Info("Analysis completed", "chunks", outcome.chunks, "duration_ms", time.Since(start).Milliseconds())

	return &ExecuteResult{
		Success:       true,
		CorrelationID: in.CorrelationID,
		Chunks:        outcome.chunks,
	}, nil
}

type stageOutcome struct {
	chunks int
}

// runStages is steps fetch → analyze → index → complete. A panic anywhere in
// a collaborator is converted to an error so it takes the quarantine path
// like any other failure.
func (s *analysisService) runStages(ctx context.Context, log *logger.Logger, asset *types.KnowledgeAsset, in ExecuteInput, st *execState, reporter ProgressReporter) (out *stageOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Analysis stage panicked", "panic", r)
			err = fmt.Errorf("panic during analysis: %v\n%s", r, debug.Stack())
			out = nil
		}
	}()

	s.reportProgress(ctx, asset.ID, st, reporter, 5)

	data, err := s.bucket.Download(ctx, asset.StorageObjectID)
	if err != nil {
		return nil, fmt.Errorf("fetch stored bytes: %w", err)
	}
	s.reportProgress(ctx, asset.ID, st, reporter, 15)

	res, err := s.engine.Analyze(ctx, data, asset, in.CorrelationID)
	if err != nil {
		return nil, fmt.Errorf("analysis engine: %w", err)
	}
	s.reportProgress(ctx, asset.ID, st, reporter, 60)

	chunks, err := s.indexer.Index(ctx, res, asset, in.CorrelationID, func(percent int) {
		if percent < 60 {
			percent = 60
		}
		if percent > 100 {
			percent = 100
		}
		s.reportProgress(ctx, asset.ID, st, reporter, percent)
	})
	if err != nil {
		return nil, fmt.Errorf("indexer: %w", err)
	}

	if err := s.validator.Validate(types.IngestionProcessing, types.IngestionCompleted); err != nil {
		return nil, err
	}
	err = s.assetRepo.UpdateStatusVersioned(ctx, nil, asset.ID, st.version, map[string]interface{}{
		"ingestion_status":  types.IngestionCompleted,
		"total_chunks":      chunks,
		"detected_model":    res.DetectedModel,
		"detected_language": res.DetectedLanguage,
		"document_context":  res.DocumentContext,
		"industry":          firstNonEmpty(asset.Industry, res.DetectedIndustry),
		"progress_percent":  100,
		"error_message":     "",
	})
	if err != nil {
		return nil, fmt.Errorf("persist COMPLETED: %w", err)
	}
	st.version++
	s.reportProgress(ctx, asset.ID, st, reporter, 100)

	return &stageOutcome{chunks: chunks}, nil
}

// quarantine is the single failure path for everything after the PROCESSING
// write: persist FAILED with the last known progress, dead-letter the job
// input, append the FAILED audit record, then re-raise for the worker's own
// retry policy. The FAILED transition is validated optimistically from
// PROCESSING; the earlier write is known to have landed because conflicts
// short-circuit before the stages run.
func (s *analysisService) quarantine(ctx context.Context, log *logger.Logger, asset *types.KnowledgeAsset, in ExecuteInput, st *execState, start time.Time, cause error) error {
	const op = "AnalysisService.Execute"

	if err := s.validator.Validate(types.IngestionProcessing, types.IngestionFailed); err != nil {
		log.Warn("FAILED transition flagged by validator", "error", err)
	}
	err := s.assetRepo.UpdateStatusVersioned(ctx, nil, asset.ID, st.version, map[string]interface{}{
		"ingestion_status": types.IngestionFailed,
		"error_message":    cause.Error(),
		"progress_percent": st.progress,
		"attempts":         st.attempts,
	})
	if err != nil {
		log.Error("Failed to persist FAILED status", "error", err)
	}

	payload, merr := json.Marshal(AnalysisJobPayload{
		AssetID:       asset.ID,
		TenantID:      asset.TenantID,
		CorrelationID: in.CorrelationID,
		User:          in.User,
		Environment:   in.Environment,
		MaskPII:       in.MaskPII,
	})
	if merr != nil {
		payload = []byte("{}")
	}
	entry := &types.DeadLetterEntry{
		ID:            uuid.New(),
		TenantID:      asset.TenantID,
		DocID:         asset.ID,
		CorrelationID: in.CorrelationID,
		JobType:       JobTypeAnalyzeAsset,
		FailureReason: cause.Error(),
		RetryCount:    st.attempts,
		LastAttempt:   time.Now(),
		StackTrace:    string(debug.Stack()),
		Payload:       datatypes.JSON(payload),
	}
	if err := s.dlqRepo.Create(ctx, nil, entry); err != nil {
		log.Error("Failed to write dead-letter entry", "error", err)
	}

	s.appendAudit(ctx, asset, in, types.AuditStatusFailed, map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
		"error":       cause.Error(),
		"attempt":     st.attempts,
	})

	s.metrics.RecordExecution("failed")
	s.metrics.RecordDeadLetter()
	s.metrics.ObserveAnalysisDuration(time.Since(start).Seconds())
	log.Error("Analysis failed and was quarantined", "error", cause, "attempt", st.attempts)

	var typed *ingest.Error
	if errors.As(cause, &typed) {
		return cause
	}
	return ingest.Infra(op, cause)
}

// reportProgress persists and publishes only forward movement, keeping the
// stored value monotonically non-decreasing within one execution.
func (s *analysisService) reportProgress(ctx context.Context, assetID uuid.UUID, st *execState, reporter ProgressReporter, percent int) {
	if percent <= st.progress {
		return
	}
	st.progress = percent
	if err := s.assetRepo.UpdateProgress(ctx, nil, assetID, percent); err != nil {
		s.log.Warn("Failed to persist progress", "asset_id", assetID, "percent", percent, "error", err)
	}
	reporter.Report(ctx, percent)
}

func (s *analysisService) appendAudit(ctx context.Context, asset *types.KnowledgeAsset, in ExecuteInput, status string, details map[string]interface{}) {
	blob, err := json.Marshal(details)
	if err != nil {
		blob = []byte("{}")
	}
	rec := &types.AuditRecord{
		ID:            uuid.New(),
		TenantID:      asset.TenantID,
		CorrelationID: in.CorrelationID,
		PerformedBy:   in.User.UserID.String(),
		DocID:         asset.ID,
		Status:        status,
		Details:       datatypes.JSON(blob),
	}
	if err := s.auditRepo.Append(ctx, nil, rec); err != nil {
		s.log.Error("Failed to append audit record", "doc_id", asset.ID, "status", status, "error", err)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
