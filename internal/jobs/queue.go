package jobs

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/services"
)

// TemporalQueue implements services.JobQueue by starting one workflow per
// asset. The workflow ID is derived from the asset ID, so a duplicate
// enqueue while a run is in flight is rejected by the server and treated as
// success here.
type TemporalQueue struct {
	log       *logger.Logger
	client    temporalsdkclient.Client
	taskQueue string
}

func NewTemporalQueue(baseLog *logger.Logger, c temporalsdkclient.Client, taskQueue string) *TemporalQueue {
	return &TemporalQueue{
		log:       baseLog.With("component", "TemporalQueue"),
		client:    c,
		taskQueue: taskQueue,
	}
}

func (q *TemporalQueue) Enqueue(ctx context.Context, jobType string, payload services.AnalysisJobPayload) (*services.EnqueueResult, error) {
	if q == nil || q.client == nil {
		return nil, fmt.Errorf("job queue unavailable")
	}
	workflowID := fmt.Sprintf("ingest:%s", payload.AssetID)

	run, err := q.client.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: q.taskQueue,
	}, WorkflowName, payload)
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			q.log.Info("Workflow already running for asset", "workflow_id", workflowID)
			return &services.EnqueueResult{JobID: workflowID}, nil
		}
		return nil, fmt.Errorf("start workflow %s: %w", workflowID, err)
	}

	q.log.Info("Analysis job enqueued", "workflow_id", workflowID, "run_id", run.GetRunID(), "job_type", jobType)
	return &services.EnqueueResult{JobID: workflowID}, nil
}
