package jobs

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/tessera-ai/knowledge-backend/internal/services"
)

const (
	WorkflowName = "knowledge_asset_ingest"
	ActivityName = "analyze_knowledge_asset"
)

// IngestWorkflow runs one analysis end to end. Retries stay at the workflow
// level: infrastructure failures (storage, engine, indexer) are retried a
// bounded number of times, while validation, not-found, and forbidden
// outcomes are terminal on the first attempt.
func IngestWorkflow(ctx workflow.Context, in services.AnalysisJobPayload) (*services.ExecuteResult, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				ErrTypeValidation,
				ErrTypeNotFound,
				ErrTypeForbidden,
			},
		},
	})

	var out services.ExecuteResult
	if err := workflow.ExecuteActivity(ctx, ActivityName, in).Get(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
