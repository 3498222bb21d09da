package services

import (
	"github.com/google/uuid"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
)

type Capability string

const (
	CapabilityIngest  Capability = "knowledge.ingest"
	CapabilityAnalyze Capability = "knowledge.analyze"
)

// UserContext is the acting-user identity threaded through preparation and
// analysis. It carries no credentials; authentication happens upstream.
type UserContext struct {
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Role     string    `json:"role"`
	Tier     string    `json:"tier"`
}

// PermissionConfig is built once at process start and injected. Tier and role
// entitlements live here instead of package-level state so tests and binaries
// can carry different tables.
type PermissionConfig struct {
	TierCapabilities map[string][]Capability
	RoleCapabilities map[string][]Capability
}

// DefaultPermissionConfig grants ingestion to every paid tier and to the
// admin role regardless of tier.
func DefaultPermissionConfig() PermissionConfig {
	ingestAll := []Capability{CapabilityIngest, CapabilityAnalyze}
	return PermissionConfig{
		TierCapabilities: map[string][]Capability{
			"starter":    ingestAll,
			"pro":        ingestAll,
			"enterprise": ingestAll,
		},
		RoleCapabilities: map[string][]Capability{
			"admin": ingestAll,
		},
	}
}

type PermissionGate interface {
	Can(user UserContext, cap Capability) bool
}

type permissionGate struct {
	log *logger.Logger
	cfg PermissionConfig
}

func NewPermissionGate(cfg PermissionConfig, baseLog *logger.Logger) PermissionGate {
	return &permissionGate{
		log: baseLog.With("service", "PermissionGate"),
		cfg: cfg,
	}
}

func (g *permissionGate) Can(user UserContext, cap Capability) bool {
	if hasCapability(g.cfg.RoleCapabilities[user.Role], cap) {
		return true
	}
	if hasCapability(g.cfg.TierCapabilities[user.Tier], cap) {
		return true
	}
	g.log.Debug("Capability denied", "user_id", user.UserID, "role", user.Role, "tier", user.Tier, "capability", cap)
	return false
}

func hasCapability(caps []Capability, want Capability) bool {
	for _, c := range caps {
		if c == want {
			return true
		}
	}
	return false
}
