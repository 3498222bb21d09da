package services

import (
	"context"

	"github.com/google/uuid"

	redisclient "github.com/tessera-ai/knowledge-backend/internal/clients/redis"
	"github.com/tessera-ai/knowledge-backend/internal/logger"
)

// busProgressReporter publishes progress ticks for one asset onto the redis
// bus. Publishing is advisory; a bus outage never fails the execution.
type busProgressReporter struct {
	log           *logger.Logger
	bus           redisclient.ProgressBus
	assetID       uuid.UUID
	tenantID      uuid.UUID
	correlationID string
}

func NewBusProgressReporter(baseLog *logger.Logger, bus redisclient.ProgressBus, assetID, tenantID uuid.UUID, correlationID string) ProgressReporter {
	if bus == nil {
		return NoopProgressReporter()
	}
	return &busProgressReporter{
		log:           baseLog.With("component", "BusProgressReporter"),
		bus:           bus,
		assetID:       assetID,
		tenantID:      tenantID,
		correlationID: correlationID,
	}
}

func (r *busProgressReporter) Report(ctx context.Context, percent int) {
	err := r.bus.Publish(ctx, redisclient.ProgressEvent{
		AssetID:       r.assetID,
		TenantID:      r.tenantID,
		CorrelationID: r.correlationID,
		Percent:       percent,
	})
	if err != nil {
		r.log.Warn("Failed to publish progress event", "asset_id", r.assetID, "percent", percent, "error", err)
	}
}
