package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/tessera-ai/knowledge-backend/internal/logger"
	"github.com/tessera-ai/knowledge-backend/internal/types"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens a fresh in-memory sqlite database per test. The named shared-cache
// DSN keeps every pooled connection on the same database.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.KnowledgeAsset{},
		&types.AuditRecord{},
		&types.DeadLetterEntry{},
	); err != nil {
		tb.Fatalf("auto migrate: %v", err)
	}
	return db
}

func SeedAsset(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, status types.IngestionStatus, contentHash string) *types.KnowledgeAsset {
	tb.Helper()
	a := &types.KnowledgeAsset{
		ID:              uuid.New(),
		TenantID:        tenantID,
		ContentHash:     contentHash,
		Filename:        "manual.pdf",
		SizeBytes:       2048,
		StorageObjectID: "assets/test/object",
		StorageURL:      "https://storage.example.com/assets/test/object",
		IngestionStatus: status,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed asset: %v", err)
	}
	return a
}
