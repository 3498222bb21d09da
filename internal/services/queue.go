package services

import (
	"context"

	"github.com/google/uuid"
)

const JobTypeAnalyzeAsset = "analyze_knowledge_asset"

// AnalysisJobPayload is the enqueue payload and the dead-letter snapshot.
// It has to be enough to replay the job by hand.
type AnalysisJobPayload struct {
	AssetID       uuid.UUID   `json:"asset_id"`
	TenantID      uuid.UUID   `json:"tenant_id"`
	CorrelationID string      `json:"correlation_id"`
	User          UserContext `json:"user"`
	Environment   string      `json:"environment,omitempty"`
	MaskPII       bool        `json:"mask_pii,omitempty"`
}

type EnqueueResult struct {
	JobID string `json:"job_id"`
}

// JobQueue dispatches work from preparation to the analysis worker. The
// transport is an external collaborator; the Temporal-backed implementation
// lives in internal/jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, jobType string, payload AnalysisJobPayload) (*EnqueueResult, error)
}
