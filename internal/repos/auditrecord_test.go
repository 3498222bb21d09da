package repos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/tessera-ai/knowledge-backend/internal/repos"
	"github.com/tessera-ai/knowledge-backend/internal/repos/testutil"
	"github.com/tessera-ai/knowledge-backend/internal/types"
)

func TestAuditRecordAppendAssignsID(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repos.NewAuditRecordRepo(db, testutil.Logger(t))

	rec := &types.AuditRecord{
		TenantID:      uuid.New(),
		CorrelationID: "corr-1",
		DocID:         uuid.New(),
		Status:        types.AuditStatusPending,
		Details:       datatypes.JSON([]byte(`{"filename":"report.pdf"}`)),
	}
	if err := repo.Append(ctx, nil, rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if rec.ID == uuid.Nil {
		t.Fatal("Append left ID unset")
	}
}

func TestAuditRecordListByDocOrdered(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repos.NewAuditRecordRepo(db, testutil.Logger(t))

	tenant := uuid.New()
	doc := uuid.New()
	base := time.Now().Add(-time.Minute)

	statuses := []string{types.AuditStatusPending, types.AuditStatusSuccess}
	for i, status := range statuses {
		rec := &types.AuditRecord{
			TenantID:      tenant,
			CorrelationID: "corr-trail",
			DocID:         doc,
			Status:        status,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Append(ctx, nil, rec); err != nil {
			t.Fatalf("Append %s: %v", status, err)
		}
	}
	// Unrelated document, must not show up in the trail.
	if err := repo.Append(ctx, nil, &types.AuditRecord{
		TenantID:      tenant,
		CorrelationID: "corr-other",
		DocID:         uuid.New(),
		Status:        types.AuditStatusFailed,
	}); err != nil {
		t.Fatalf("Append unrelated: %v", err)
	}

	trail, err := repo.ListByDoc(ctx, nil, doc)
	if err != nil {
		t.Fatalf("ListByDoc: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("trail length = %d, want 2", len(trail))
	}
	if trail[0].Status != types.AuditStatusPending || trail[1].Status != types.AuditStatusSuccess {
		t.Fatalf("trail out of order: %s, %s", trail[0].Status, trail[1].Status)
	}

	byCorr, err := repo.ListByCorrelation(ctx, nil, "corr-trail")
	if err != nil {
		t.Fatalf("ListByCorrelation: %v", err)
	}
	if len(byCorr) != 2 {
		t.Fatalf("correlation trail length = %d, want 2", len(byCorr))
	}
}

func TestAuditRecordListByTenantLimit(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repos.NewAuditRecordRepo(db, testutil.Logger(t))

	tenant := uuid.New()
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		rec := &types.AuditRecord{
			TenantID:      tenant,
			CorrelationID: "corr-limit",
			DocID:         uuid.New(),
			Status:        types.AuditStatusPending,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Append(ctx, nil, rec); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	out, err := repo.ListByTenant(ctx, nil, tenant, 3)
	if err != nil {
		t.Fatalf("ListByTenant: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d records, want 3", len(out))
	}
	// Newest first.
	if !out[0].CreatedAt.After(out[1].CreatedAt) {
		t.Fatalf("records not in descending order: %v then %v", out[0].CreatedAt, out[1].CreatedAt)
	}
}
