package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/types"
)

// ErrVersionConflict means a conditional status update found a different
// version than the caller last read: another writer got there first. Callers
// fail, they do not blindly retry.
var ErrVersionConflict = errors.New("knowledge asset version conflict")

type KnowledgeAssetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, asset *types.KnowledgeAsset) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.KnowledgeAsset, error)
	GetByTenantAndHash(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, contentHash string) (*types.KnowledgeAsset, error)
	ListByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.KnowledgeAsset, error)
	ListPendingOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.KnowledgeAsset, error)
	UpdateStatusVersioned(ctx context.Context, tx *gorm.DB, id uuid.UUID, fromVersion int, updates map[string]interface{}) error
	UpdateProgress(ctx context.Context, tx *gorm.DB, id uuid.UUID, percent int) error
}

type knowledgeAssetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeAssetRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeAssetRepo {
	return &knowledgeAssetRepo{
		db:  db,
		log: baseLog.With("repo", "KnowledgeAssetRepo"),
	}
}

func (r *knowledgeAssetRepo) Create(ctx context.Context, tx *gorm.DB, asset *types.KnowledgeAsset) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if asset == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(asset).Error
}

func (r *knowledgeAssetRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.KnowledgeAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var asset types.KnowledgeAsset
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&asset).Error
	if err != nil {
		return nil, err
	}
	if asset.ID == uuid.Nil {
		return nil, nil
	}
	return &asset, nil
}

func (r *knowledgeAssetRepo) GetByTenantAndHash(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, contentHash string) (*types.KnowledgeAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || contentHash == "" {
		return nil, nil
	}
	var asset types.KnowledgeAsset
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND content_hash = ?", tenantID, contentHash).
		Limit(1).
		Find(&asset).Error
	if err != nil {
		return nil, err
	}
	if asset.ID == uuid.Nil {
		return nil, nil
	}
	return &asset, nil
}

func (r *knowledgeAssetRepo) ListByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.KnowledgeAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.KnowledgeAsset
	if tenantID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *knowledgeAssetRepo) ListPendingOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.KnowledgeAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.KnowledgeAsset
	err := transaction.WithContext(ctx).
		Where("ingestion_status = ? AND updated_at < ?", types.IngestionPending, cutoff).
		Order("updated_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatusVersioned applies updates only when the row still carries
// fromVersion, and bumps version by one in the same statement. A zero-row
// update against an existing asset is a lost race and returns
// ErrVersionConflict.
func (r *knowledgeAssetRepo) UpdateStatusVersioned(ctx context.Context, tx *gorm.DB, id uuid.UUID, fromVersion int, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	merged := make(map[string]interface{}, len(updates)+2)
	for k, v := range updates {
		merged[k] = v
	}
	merged["version"] = fromVersion + 1
	merged["updated_at"] = time.Now()

	res := transaction.WithContext(ctx).
		Model(&types.KnowledgeAsset{}).
		Where("id = ? AND version = ?", id, fromVersion).
		Updates(merged)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		r.log.Warn("Versioned status update lost the race", "asset_id", id, "expected_version", fromVersion)
		return ErrVersionConflict
	}
	return nil
}

// UpdateProgress leaves version untouched so progress reporting cannot
// conflict with a concurrent status write.
func (r *knowledgeAssetRepo) UpdateProgress(ctx context.Context, tx *gorm.DB, id uuid.UUID, percent int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.KnowledgeAsset{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress_percent": percent,
			"updated_at":       time.Now(),
		}).Error
}
