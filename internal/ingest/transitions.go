package ingest

import (
	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/types"
)

// legalTransitions is the full status graph. COMPLETED and FAILED are
// terminal; leaving them is reserved for manual replay, which does not go
// through this validator.
var legalTransitions = map[types.IngestionStatus][]types.IngestionStatus{
	types.IngestionPending:    {types.IngestionQueued, types.IngestionProcessing},
	types.IngestionQueued:     {types.IngestionProcessing},
	types.IngestionProcessing: {types.IngestionCompleted, types.IngestionFailed},
}

// TransitionRecorder receives one record per attempted transition, legal or
// not. observability.Metrics satisfies this.
type TransitionRecorder interface {
	RecordTransition(from, to types.IngestionStatus, legal bool)
}

// TransitionValidator is a stateless guard over the status graph. It never
// mutates anything; callers persist the new status themselves after Validate
// returns nil.
type TransitionValidator struct {
	log *logger.Logger
	rec TransitionRecorder
}

func NewTransitionValidator(baseLog *logger.Logger, rec TransitionRecorder) *TransitionValidator {
	return &TransitionValidator{
		log: baseLog.With("component", "TransitionValidator"),
		rec: rec,
	}
}

// Validate checks the from→to edge, emitting a telemetry record for the
// attempt before returning. Illegal edges return a validation error naming
// both states.
func (v *TransitionValidator) Validate(from, to types.IngestionStatus) error {
	legal := IsLegalTransition(from, to)
	if v.rec != nil {
		v.rec.RecordTransition(from, to, legal)
	}
	if !legal {
		v.log.Warn("Illegal status transition attempted", "from", from, "to", to)
		return Validation("ingest.Validate", "illegal status transition %s -> %s", from, to)
	}
	v.log.Debug("Status transition validated", "from", from, "to", to)
	return nil
}

func IsLegalTransition(from, to types.IngestionStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
