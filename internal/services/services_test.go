package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tessera-ai/knowledge-backend/internal/ingest"
	"github.com/tessera-ai/knowledge-backend/internal/observability"
	"github.com/tessera-ai/knowledge-backend/internal/repos"
	"github.com/tessera-ai/knowledge-backend/internal/repos/testutil"
	"github.com/tessera-ai/knowledge-backend/internal/services"
	"github.com/tessera-ai/knowledge-backend/internal/types"
)

// Shared fake collaborators for the service tests. Repos run against the real
// sqlite-backed implementations; only the external boundaries are faked.

type fakeBucket struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploads   int
	failFirst int
	downErr   error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (b *fakeBucket) Upload(ctx context.Context, key string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads++
	if b.uploads <= b.failFirst {
		return "", fmt.Errorf("transient storage error on attempt %d", b.uploads)
	}
	b.objects[key] = data
	return "https://storage.example.com/" + key, nil
}

func (b *fakeBucket) Download(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.downErr != nil {
		return nil, b.downErr
	}
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (b *fakeBucket) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *fakeBucket) PublicURL(key string) string {
	return "https://storage.example.com/" + key
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []services.AnalysisJobPayload
	err      error
}

func (q *fakeQueue) Enqueue(ctx context.Context, jobType string, payload services.AnalysisJobPayload) (*services.EnqueueResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.enqueued = append(q.enqueued, payload)
	return &services.EnqueueResult{JobID: "job-" + payload.AssetID.String()}, nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.enqueued)
}

type fakeEngine struct {
	res    *services.AnalysisResult
	err    error
	onCall func()
}

func (e *fakeEngine) Analyze(ctx context.Context, data []byte, asset *types.KnowledgeAsset, correlationID string) (*services.AnalysisResult, error) {
	if e.onCall != nil {
		e.onCall()
	}
	if e.err != nil {
		return nil, e.err
	}
	if e.res != nil {
		return e.res, nil
	}
	return &services.AnalysisResult{
		RawText:          string(data),
		DetectedModel:    "XR-200",
		DetectedIndustry: "manufacturing",
		DetectedLanguage: "en",
		DocumentContext:  "service manual",
	}, nil
}

type fakeIndexer struct {
	chunks int
	err    error
	drive  []int
	panics bool
}

func (ix *fakeIndexer) Index(ctx context.Context, res *services.AnalysisResult, asset *types.KnowledgeAsset, correlationID string, onProgress func(percent int)) (int, error) {
	if ix.panics {
		panic("indexer blew up")
	}
	if ix.err != nil {
		return 0, ix.err
	}
	for _, p := range ix.drive {
		onProgress(p)
	}
	if ix.chunks == 0 {
		return 4, nil
	}
	return ix.chunks, nil
}

type staticGate bool

func (g staticGate) Can(services.UserContext, services.Capability) bool { return bool(g) }

type recordingReporter struct {
	mu       sync.Mutex
	percents []int
}

func (r *recordingReporter) Report(ctx context.Context, percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.percents = append(r.percents, percent)
}

func (r *recordingReporter) seen() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.percents))
	copy(out, r.percents)
	return out
}

// env bundles the real persistence stack every service test needs.
type env struct {
	db        *gorm.DB
	assetRepo repos.KnowledgeAssetRepo
	auditRepo repos.AuditRecordRepo
	dlqRepo   repos.DeadLetterRepo
	validator *ingest.TransitionValidator
	metrics   *observability.Metrics
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	metrics := observability.NewMetrics()
	return &env{
		db:        db,
		assetRepo: repos.NewKnowledgeAssetRepo(db, log),
		auditRepo: repos.NewAuditRecordRepo(db, log),
		dlqRepo:   repos.NewDeadLetterRepo(db, log),
		validator: ingest.NewTransitionValidator(log, metrics),
		metrics:   metrics,
	}
}

func testUser() services.UserContext {
	return services.UserContext{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Role:     "member",
		Tier:     "pro",
	}
}

func mustAsset(t *testing.T, e *env, id uuid.UUID) *types.KnowledgeAsset {
	t.Helper()
	asset, err := e.assetRepo.GetByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("reload asset: %v", err)
	}
	if asset == nil {
		t.Fatalf("asset %s vanished", id)
	}
	return asset
}

func wantKind(t *testing.T, err error, kind ingest.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := ingest.KindOf(err); got != kind {
		t.Fatalf("error kind = %s, want %s (err: %v)", got, kind, err)
	}
}

var errBoom = errors.New("boom")
