package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tessera-ai/knowledge-backend/internal/ingest"
	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/repos"
	"github.com/tessera-ai/knowledge-backend/internal/types"
)

// ReconcileService sweeps up assets that were stored but never made it onto
// the queue (a prepare whose enqueue failed). Anything still PENDING after
// the threshold gets re-enqueued and moved to QUEUED so the next sweep skips
// it.
type ReconcileService interface {
	RequeueStalePending(ctx context.Context, olderThan time.Duration) (int, error)
}

type reconcileService struct {
	db        *gorm.DB
	log       *logger.Logger
	assetRepo repos.KnowledgeAssetRepo
	queue     JobQueue
	validator *ingest.TransitionValidator
}

func NewReconcileService(
	db *gorm.DB,
	baseLog *logger.Logger,
	assetRepo repos.KnowledgeAssetRepo,
	queue JobQueue,
	validator *ingest.TransitionValidator,
) ReconcileService {
	return &reconcileService{
		db:        db,
		log:       baseLog.With("service", "ReconcileService"),
		assetRepo: assetRepo,
		queue:     queue,
		validator: validator,
	}
}

func (s *reconcileService) RequeueStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	const op = "ReconcileService.RequeueStalePending"

	cutoff := time.Now().Add(-olderThan)
	stale, err := s.assetRepo.ListPendingOlderThan(ctx, nil, cutoff)
	if err != nil {
		return 0, ingest.Infra(op, fmt.Errorf("list stale PENDING assets: %w", err))
	}

	requeued := 0
	for _, asset := range stale {
		enq, err := s.queue.Enqueue(ctx, JobTypeAnalyzeAsset, AnalysisJobPayload{
			AssetID:       asset.ID,
			TenantID:      asset.TenantID,
			CorrelationID: fmt.Sprintf("reconcile-%s", asset.ID),
		})
		if err != nil {
			s.log.Warn("Requeue failed, asset stays PENDING", "asset_id", asset.ID, "error", err)
			continue
		}

		if err := s.validator.Validate(asset.IngestionStatus, types.IngestionQueued); err != nil {
			// Another writer advanced the asset between list and enqueue; the
			// queue-level dedupe makes the extra job harmless.
			s.log.Debug("Asset advanced before requeue mark", "asset_id", asset.ID, "status", asset.IngestionStatus)
			continue
		}
		err = s.assetRepo.UpdateStatusVersioned(ctx, nil, asset.ID, asset.Version, map[string]interface{}{
			"ingestion_status": types.IngestionQueued,
		})
		if err != nil {
			s.log.Warn("Failed to mark requeued asset QUEUED", "asset_id", asset.ID, "error", err)
			continue
		}
		s.log.Info("Stale PENDING asset requeued", "asset_id", asset.ID, "job_id", enq.JobID)
		requeued++
	}
	return requeued, nil
}
