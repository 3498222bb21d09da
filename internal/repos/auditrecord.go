package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/types"
)

// AuditRecordRepo is append-only. There is deliberately no update or delete.
type AuditRecordRepo interface {
	Append(ctx context.Context, tx *gorm.DB, rec *types.AuditRecord) error
	ListByDoc(ctx context.Context, tx *gorm.DB, docID uuid.UUID) ([]*types.AuditRecord, error)
	ListByCorrelation(ctx context.Context, tx *gorm.DB, correlationID string) ([]*types.AuditRecord, error)
	ListByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int) ([]*types.AuditRecord, error)
}

type auditRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRecordRepo(db *gorm.DB, baseLog *logger.Logger) AuditRecordRepo {
	return &auditRecordRepo{
		db:  db,
		log: baseLog.With("repo", "AuditRecordRepo"),
	}
}

func (r *auditRecordRepo) Append(ctx context.Context, tx *gorm.DB, rec *types.AuditRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if rec == nil {
		return nil
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(rec).Error
}

func (r *auditRecordRepo) ListByDoc(ctx context.Context, tx *gorm.DB, docID uuid.UUID) ([]*types.AuditRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AuditRecord
	if docID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("doc_id = ?", docID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *auditRecordRepo) ListByCorrelation(ctx context.Context, tx *gorm.DB, correlationID string) ([]*types.AuditRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AuditRecord
	if correlationID == "" {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *auditRecordRepo) ListByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int) ([]*types.AuditRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AuditRecord
	if tenantID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
