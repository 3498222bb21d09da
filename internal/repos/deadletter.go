package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/types"
)

type DeadLetterRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.DeadLetterEntry) error
	ListByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int) ([]*types.DeadLetterEntry, error)
	ListByDoc(ctx context.Context, tx *gorm.DB, docID uuid.UUID) ([]*types.DeadLetterEntry, error)
}

type deadLetterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeadLetterRepo(db *gorm.DB, baseLog *logger.Logger) DeadLetterRepo {
	return &deadLetterRepo{
		db:  db,
		log: baseLog.With("repo", "DeadLetterRepo"),
	}
}

func (r *deadLetterRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.DeadLetterEntry) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if entry == nil {
		return nil
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(entry).Error
}

func (r *deadLetterRepo) ListByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int) ([]*types.DeadLetterEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.DeadLetterEntry
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

func (r *deadLetterRepo) ListByDoc(ctx context.Context, tx *gorm.DB, docID uuid.UUID) ([]*types.DeadLetterEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.DeadLetterEntry
	if docID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("doc_id = ?", docID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
