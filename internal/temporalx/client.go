package temporalx

import (
	"context"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/utils"
)

type Config struct {
	Address   string
	Namespace string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Address:   utils.GetEnv("TEMPORAL_ADDRESS", "", log),
		Namespace: utils.GetEnv("TEMPORAL_NAMESPACE", "default", log),
	}
}

// NewClient dials Temporal with bounded retry. Returns (nil, nil) when
// TEMPORAL_ADDRESS is unset so callers can run in degraded mode (prepare
// succeeds, enqueue reports failure).
func NewClient(log *logger.Logger) (temporalsdkclient.Client, error) {
	cfg := LoadConfig(log)
	if cfg.Address == "" {
		if log != nil {
			log.Warn("TEMPORAL_ADDRESS not set; Temporal disabled")
		}
		return nil, nil
	}

	opts := temporalsdkclient.Options{
		HostPort:  cfg.Address,
		Namespace: cfg.Namespace,
		Logger:    log,
	}

	dialTimeout := time.Duration(utils.GetEnvAsInt("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5, log)) * time.Second
	maxWait := time.Duration(utils.GetEnvAsInt("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60, log)) * time.Second
	backoff := time.Duration(utils.GetEnvAsInt("TEMPORAL_DIAL_BACKOFF_MS", 250, log)) * time.Millisecond
	backoffMax := time.Duration(utils.GetEnvAsInt("TEMPORAL_DIAL_BACKOFF_MAX_MS", 5000, log)) * time.Millisecond

	deadline := time.Now().Add(maxWait)
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		c, err := temporalsdkclient.DialContext(ctx, opts)
		cancel()
		if err == nil {
			if log != nil && attempt > 1 {
				log.Info("Connected to Temporal", "address", cfg.Address, "namespace", cfg.Namespace, "attempts", attempt)
			}
			return c, nil
		}

		if maxWait <= 0 || time.Now().After(deadline) {
			return nil, fmt.Errorf("temporal dial failed (address=%s namespace=%s): %w", cfg.Address, cfg.Namespace, err)
		}

		if log != nil {
			log.Warn("Temporal not reachable; retrying", "address", cfg.Address, "namespace", cfg.Namespace, "attempt", attempt, "error", err)
		}

		sleep := clampBackoff(backoff, backoffMax, attempt)
		if sleep > 0 {
			time.Sleep(sleep)
		}
	}
}

func clampBackoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}
