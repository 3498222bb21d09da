package repos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/tessera-ai/knowledge-backend/internal/repos"
	"github.com/tessera-ai/knowledge-backend/internal/repos/testutil"
	"github.com/tessera-ai/knowledge-backend/internal/services"
	"github.com/tessera-ai/knowledge-backend/internal/types"
)

func TestDeadLetterCreateAndList(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repos.NewDeadLetterRepo(db, testutil.Logger(t))

	tenant := uuid.New()
	doc := uuid.New()
	entry := &types.DeadLetterEntry{
		TenantID:      tenant,
		DocID:         doc,
		CorrelationID: "corr-dlq",
		JobType:       services.JobTypeAnalyzeAsset,
		FailureReason: "engine timeout",
		RetryCount:    3,
		LastAttempt:   time.Now(),
		Payload:       datatypes.JSON([]byte(`{"asset_id":"` + doc.String() + `"}`)),
	}
	if err := repo.Create(ctx, nil, entry); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entry.ID == uuid.Nil {
		t.Fatal("Create left ID unset")
	}

	byDoc, err := repo.ListByDoc(ctx, nil, doc)
	if err != nil {
		t.Fatalf("ListByDoc: %v", err)
	}
	if len(byDoc) != 1 {
		t.Fatalf("got %d entries, want 1", len(byDoc))
	}
	if byDoc[0].FailureReason != "engine timeout" {
		t.Fatalf("failure reason = %q", byDoc[0].FailureReason)
	}
	if byDoc[0].RetryCount != 3 {
		t.Fatalf("retry count = %d, want 3", byDoc[0].RetryCount)
	}

	byTenant, err := repo.ListByTenant(ctx, nil, tenant, 10)
	if err != nil {
		t.Fatalf("ListByTenant: %v", err)
	}
	if len(byTenant) != 1 {
		t.Fatalf("got %d tenant entries, want 1", len(byTenant))
	}

	empty, err := repo.ListByDoc(ctx, nil, uuid.New())
	if err != nil {
		t.Fatalf("ListByDoc (missing): %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no entries for unknown doc, got %d", len(empty))
	}
}
