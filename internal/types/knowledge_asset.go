package types

import (
	"time"

	"github.com/google/uuid"
)

// IngestionStatus is the lifecycle state of a KnowledgeAsset. Transitions
// between states go through ingest.TransitionValidator; nothing writes a
// status without validating the edge first.
type IngestionStatus string

const (
	IngestionPending    IngestionStatus = "PENDING"
	IngestionQueued     IngestionStatus = "QUEUED"
	IngestionProcessing IngestionStatus = "PROCESSING"
	IngestionCompleted  IngestionStatus = "COMPLETED"
	IngestionFailed     IngestionStatus = "FAILED"
)

// KnowledgeAsset tracks one submitted document through its ingestion
// lifecycle. (tenant_id, content_hash) is unique: resubmitting identical
// bytes for a tenant resolves to the existing row.
type KnowledgeAsset struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_asset_tenant_hash,unique,priority:1" json:"tenant_id"`

	ContentHash string `gorm:"column:content_hash;not null;index:idx_asset_tenant_hash,unique,priority:2" json:"content_hash"`
	Filename    string `gorm:"column:filename;not null" json:"filename"`
	SizeBytes   int64  `gorm:"column:size_bytes;not null" json:"size_bytes"`

	StorageURL      string `gorm:"column:storage_url" json:"storage_url"`
	StorageObjectID string `gorm:"column:storage_object_id" json:"storage_object_id"`

	Industry         string `gorm:"column:industry" json:"industry,omitempty"`
	DetectedModel    string `gorm:"column:detected_model" json:"detected_model,omitempty"`
	DetectedLanguage string `gorm:"column:detected_language" json:"detected_language,omitempty"`
	DocumentContext  string `gorm:"column:document_context" json:"document_context,omitempty"`

	IngestionStatus IngestionStatus `gorm:"column:ingestion_status;not null;index" json:"ingestion_status"`
	ProgressPercent int             `gorm:"column:progress_percent;not null;default:0" json:"progress_percent"`
	Attempts        int             `gorm:"column:attempts;not null;default:0" json:"attempts"`
	TotalChunks     int             `gorm:"column:total_chunks;not null;default:0" json:"total_chunks"`
	ErrorMessage    string          `gorm:"column:error_message" json:"error_message,omitempty"`
	Environment     string          `gorm:"column:environment" json:"environment,omitempty"`

	// Version guards status writes: every status update is conditioned on the
	// version the writer last read and bumps it by one.
	Version int `gorm:"column:version;not null;default:0" json:"version"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (KnowledgeAsset) TableName() string { return "knowledge_asset" }
