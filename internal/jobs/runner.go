package jobs

import (
	"fmt"

	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/utils"
)

func TaskQueue(log *logger.Logger) string {
	return utils.GetEnv("TEMPORAL_TASK_QUEUE", "knowledge-ingest", log)
}

// Runner hosts the ingest workflow and activity on one task queue.
type Runner struct {
	log    *logger.Logger
	worker worker.Worker
}

func NewRunner(baseLog *logger.Logger, c temporalsdkclient.Client, taskQueue string, acts *Activities) (*Runner, error) {
	if c == nil {
		return nil, fmt.Errorf("temporal client required")
	}
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(IngestWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(acts.AnalyzeAsset, activity.RegisterOptions{Name: ActivityName})
	return &Runner{
		log:    baseLog.With("component", "IngestWorkerRunner"),
		worker: w,
	}, nil
}

// Run blocks until interruptCh closes (worker.InterruptCh() in main).
func (r *Runner) Run(interruptCh <-chan interface{}) error {
	r.log.Info("Ingest worker starting")
	return r.worker.Run(interruptCh)
}
