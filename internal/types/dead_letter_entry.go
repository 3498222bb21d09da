package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeadLetterEntry quarantines one terminally-failed analysis job. Payload is
// a snapshot of the original job input, sufficient for manual replay.
type DeadLetterEntry struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_dlq_tenant_doc,priority:1" json:"tenant_id"`
	DocID         uuid.UUID      `gorm:"type:uuid;column:doc_id;not null;index:idx_dlq_tenant_doc,priority:2" json:"doc_id"`
	CorrelationID string         `gorm:"column:correlation_id;not null;index" json:"correlation_id"`
	JobType       string         `gorm:"column:job_type;not null" json:"job_type"`
	FailureReason string         `gorm:"column:failure_reason;not null" json:"failure_reason"`
	RetryCount    int            `gorm:"column:retry_count;not null" json:"retry_count"`
	LastAttempt   time.Time      `gorm:"column:last_attempt;not null" json:"last_attempt"`
	StackTrace    string         `gorm:"column:stack_trace" json:"stack_trace,omitempty"`
	Payload       datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
}

func (DeadLetterEntry) TableName() string { return "dead_letter_entry" }
