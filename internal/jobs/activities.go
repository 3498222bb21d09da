package jobs

import (
	"context"

	"go.temporal.io/sdk/temporal"

	redisclient "github.com/tessera-ai/knowledge-backend/internal/clients/redis"
	"github.com/tessera-ai/knowledge-backend/internal/ingest"
	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/services"
)

const (
	ErrTypeValidation = "ValidationError"
	ErrTypeNotFound   = "NotFoundError"
	ErrTypeForbidden  = "ForbiddenError"
)

// Activities is the worker-side entry into the analysis executor.
type Activities struct {
	log      *logger.Logger
	analysis services.AnalysisService
	bus      redisclient.ProgressBus
}

func NewActivities(baseLog *logger.Logger, analysis services.AnalysisService, bus redisclient.ProgressBus) *Activities {
	return &Activities{
		log:      baseLog.With("component", "IngestActivities"),
		analysis: analysis,
		bus:      bus,
	}
}

// AnalyzeAsset runs one analysis execution. Pipeline failures were already
// quarantined by the executor before the error reaches the workflow, so all
// that is decided here is retryability.
func (a *Activities) AnalyzeAsset(ctx context.Context, in services.AnalysisJobPayload) (*services.ExecuteResult, error) {
	reporter := services.NewBusProgressReporter(a.log, a.bus, in.AssetID, in.TenantID, in.CorrelationID)

	res, err := a.analysis.Execute(ctx, services.ExecuteInput{
		AssetID:       in.AssetID,
		CorrelationID: in.CorrelationID,
		User:          in.User,
		Environment:   in.Environment,
		MaskPII:       in.MaskPII,
		Reporter:      reporter,
	})
	if err != nil {
		return nil, asActivityError(err)
	}
	return res, nil
}

// asActivityError translates the error taxonomy into Temporal application
// errors so the workflow retry policy can tell terminal outcomes from
// transient infrastructure failures.
func asActivityError(err error) error {
	switch ingest.KindOf(err) {
	case ingest.KindValidation:
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeValidation, err)
	case ingest.KindNotFound:
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotFound, err)
	case ingest.KindForbidden:
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeForbidden, err)
	default:
		return err
	}
}
