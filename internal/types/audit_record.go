package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AuditStatusPending   = "PENDING"
	AuditStatusDuplicate = "DUPLICATE"
	AuditStatusSuccess   = "SUCCESS"
	AuditStatusFailed    = "FAILED"
)

// AuditRecord is one append-only entry per significant lifecycle event.
// Rows are never updated or deleted.
type AuditRecord struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_audit_tenant_time,priority:1" json:"tenant_id"`
	CorrelationID string         `gorm:"column:correlation_id;not null;index" json:"correlation_id"`
	PerformedBy   string         `gorm:"column:performed_by" json:"performed_by"`
	DocID         uuid.UUID      `gorm:"type:uuid;column:doc_id;not null;index" json:"doc_id"`
	Status        string         `gorm:"column:status;not null" json:"status"`
	Details       datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;index:idx_audit_tenant_time,priority:2" json:"created_at"`
}

func (AuditRecord) TableName() string { return "audit_record" }
