// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/racepull/racepull/internal/browser"
	"github.com/racepull/racepull/internal/store"
	"github.com/racepull/racepull/internal/utils"
	"github.com/racepull/racepull/pkg/types"
)

const resultPage = `Mumbai Coastal Marathon Results
Event: Mumbai Coastal Marathon 2026
Name: Asha Patel
Category: F 30-34
Bib No: 2417
Net Time: 03:58:21
Overall Rank: 87
Category Rank: 9
Pace: 5:39 /km
`

// renderEnv is shared by every stubbed renderer a pool creates, so tests can
// count renders and observe concurrency across the whole pool.
type renderEnv struct {
	page          string
	delay         time.Duration
	renders       atomic.Int64
	inFlight      atomic.Int64
	peak          atomic.Int64
	failRemaining atomic.Int64
}

type stubRenderer struct {
	env *renderEnv
}

func (r *stubRenderer) Render(ctx context.Context, url string) (string, error) {
	n := r.env.inFlight.Add(1)
	defer r.env.inFlight.Add(-1)
	for {
		p := r.env.peak.Load()
		if n <= p || r.env.peak.CompareAndSwap(p, n) {
			break
		}
	}

	r.env.renders.Add(1)
	if r.env.delay > 0 {
		select {
		case <-time.After(r.env.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if r.env.failRemaining.Add(-1) >= 0 {
		return "", errors.New("net::ERR_CONNECTION_RESET")
	}
	return r.env.page, nil
}

func (r *stubRenderer) Close() error { return nil }

func newTestService(t *testing.T, env *renderEnv, mutate func(*Options)) *Service {
	t.Helper()

	st, err := store.Open(store.Config{Driver: "sqlite3", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	pool, err := browser.NewPool(3, func() (browser.Renderer, error) {
		return &stubRenderer{env: env}, nil
	})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	opts := Options{
		Store:      st,
		Pool:       pool,
		Logger:     utils.NewLoggerWithOutput(utils.ErrorLevel, io.Discard),
		RetryDelay: time.Millisecond,
		CacheTTL:   time.Hour,
	}
	if mutate != nil {
		mutate(&opts)
	}

	svc, err := NewService(opts)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func waitForJob(t *testing.T, svc *Service, owner, jobID string) *types.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.JobStatus(context.Background(), owner, jobID)
		if err != nil {
			t.Fatalf("JobStatus failed: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

func TestSubmitBatch_MixedValidity(t *testing.T) {
	env := &renderEnv{page: resultPage}
	svc := newTestService(t, env, nil)

	urls := []string{
		"https://sportstimingsolutions.in/results/1001",
		"https://sportstimingsolutions.in/results/1002",
		"::not a url::",
		"https://example.com/results/42",
	}
	job, err := svc.SubmitBatch(context.Background(), "owner-a", urls)
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}
	if job.Status != types.JobStatusQueued {
		t.Errorf("new job status = %q, want queued", job.Status)
	}

	done := waitForJob(t, svc, "owner-a", job.ID)
	if done.Status != types.JobStatusCompleted {
		t.Fatalf("job status = %q, want completed", done.Status)
	}
	if done.ProcessedURLs != 4 || done.SuccessCount != 2 || done.ErrorCount != 2 {
		t.Errorf("counters = %d/%d/%d, want 4 processed, 2 success, 2 error",
			done.ProcessedURLs, done.SuccessCount, done.ErrorCount)
	}

	records, err := svc.JobResults(context.Background(), "owner-a", job.ID)
	if err != nil {
		t.Fatalf("JobResults failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}

	byURL := make(map[string]types.JobResultRecord)
	for _, rec := range records {
		byURL[rec.URL] = rec
	}

	ok := byURL["https://sportstimingsolutions.in/results/1001"]
	if ok.Status != types.ResultStatusCompleted {
		t.Fatalf("valid URL status = %q", ok.Status)
	}
	if ok.Result.ParticipantName == nil || *ok.Result.ParticipantName != "Asha Patel" {
		t.Errorf("participant = %v, want Asha Patel", ok.Result.ParticipantName)
	}
	if ok.Result.Platform == nil || *ok.Result.Platform != "sportstiming" {
		t.Errorf("platform = %v, want sportstiming", ok.Result.Platform)
	}
	if ok.Result.OverallRank == nil || *ok.Result.OverallRank != 87 {
		t.Errorf("overall rank = %v, want 87", ok.Result.OverallRank)
	}

	bad := byURL["::not a url::"]
	if bad.Status != types.ResultStatusError || bad.ErrorMessage == nil {
		t.Fatalf("invalid URL record = %+v, want error with message", bad)
	}
	if !strings.Contains(*bad.ErrorMessage, "invalid URL") {
		t.Errorf("invalid URL message = %q", *bad.ErrorMessage)
	}

	unsupported := byURL["https://example.com/results/42"]
	if unsupported.Status != types.ResultStatusError || unsupported.ErrorMessage == nil {
		t.Fatalf("unsupported record = %+v, want error with message", unsupported)
	}
	if !strings.Contains(*unsupported.ErrorMessage, "no registered platform") {
		t.Errorf("unsupported message = %q", *unsupported.ErrorMessage)
	}
}

func TestSubmitBatch_CacheShortCircuit(t *testing.T) {
	env := &renderEnv{page: resultPage}
	svc := newTestService(t, env, nil)

	url := "https://sportstimingsolutions.in/results/2001"

	first, err := svc.SubmitBatch(context.Background(), "owner-a", []string{url})
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if done := waitForJob(t, svc, "owner-a", first.ID); done.SuccessCount != 1 {
		t.Fatalf("first job success = %d, want 1", done.SuccessCount)
	}
	if got := env.renders.Load(); got != 1 {
		t.Fatalf("renders after first job = %d, want 1", got)
	}

	// Same owner, same URL, fresh entry: served from cache without a render.
	second, err := svc.SubmitBatch(context.Background(), "owner-a", []string{url})
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	done := waitForJob(t, svc, "owner-a", second.ID)
	if done.Status != types.JobStatusCompleted || done.SuccessCount != 1 {
		t.Fatalf("second job = %+v, want 1 success", done)
	}
	if got := env.renders.Load(); got != 1 {
		t.Errorf("renders after cache hit = %d, want still 1", got)
	}

	records, err := svc.JobResults(context.Background(), "owner-a", second.ID)
	if err != nil {
		t.Fatalf("JobResults failed: %v", err)
	}
	if len(records) != 1 || records[0].Result.ParticipantName == nil ||
		*records[0].Result.ParticipantName != "Asha Patel" {
		t.Errorf("cached record should carry the original result: %+v", records)
	}

	// A different owner never sees owner-a's cache.
	third, err := svc.SubmitBatch(context.Background(), "owner-b", []string{url})
	if err != nil {
		t.Fatalf("third submit failed: %v", err)
	}
	waitForJob(t, svc, "owner-b", third.ID)
	if got := env.renders.Load(); got != 2 {
		t.Errorf("renders after other-owner job = %d, want 2", got)
	}
}

func TestSubmitBatch_RetriesTransientRenderFailures(t *testing.T) {
	env := &renderEnv{page: resultPage}
	env.failRemaining.Store(2)
	svc := newTestService(t, env, nil)

	job, err := svc.SubmitBatch(context.Background(), "owner-a",
		[]string{"https://sportstimingsolutions.in/results/3001"})
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}

	done := waitForJob(t, svc, "owner-a", job.ID)
	if done.Status != types.JobStatusCompleted || done.SuccessCount != 1 {
		t.Fatalf("job = status %q success %d, want completed with 1 success",
			done.Status, done.SuccessCount)
	}
	if got := env.renders.Load(); got != 3 {
		t.Errorf("render attempts = %d, want exactly 3 (two failures, one success)", got)
	}
}

func TestSubmitBatch_RetryBudgetExhausted(t *testing.T) {
	env := &renderEnv{page: resultPage}
	env.failRemaining.Store(100)
	svc := newTestService(t, env, nil)

	job, err := svc.SubmitBatch(context.Background(), "owner-a",
		[]string{"https://sportstimingsolutions.in/results/3002"})
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}

	// One URL failing exhausts its budget but the job itself still completes.
	done := waitForJob(t, svc, "owner-a", job.ID)
	if done.Status != types.JobStatusCompleted || done.ErrorCount != 1 {
		t.Fatalf("job = status %q errors %d, want completed with 1 error",
			done.Status, done.ErrorCount)
	}
	if got := env.renders.Load(); got != 3 {
		t.Errorf("render attempts = %d, want 3", got)
	}

	records, err := svc.JobResults(context.Background(), "owner-a", job.ID)
	if err != nil {
		t.Fatalf("JobResults failed: %v", err)
	}
	if len(records) != 1 || records[0].ErrorMessage == nil ||
		!strings.Contains(*records[0].ErrorMessage, "rendering") {
		t.Errorf("expected a render failure record, got %+v", records)
	}
}

func TestJobAccess_OwnerBoundary(t *testing.T) {
	env := &renderEnv{page: resultPage}
	svc := newTestService(t, env, nil)

	job, err := svc.SubmitBatch(context.Background(), "owner-a",
		[]string{"https://sportstimingsolutions.in/results/4001"})
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}
	waitForJob(t, svc, "owner-a", job.ID)

	if _, err := svc.JobStatus(context.Background(), "owner-b", job.ID); utils.CodeOf(err) != utils.ErrCodeUnauthorized {
		t.Errorf("other-owner JobStatus error = %v, want UNAUTHORIZED", err)
	}
	if _, err := svc.JobResults(context.Background(), "owner-b", job.ID); utils.CodeOf(err) != utils.ErrCodeUnauthorized {
		t.Errorf("other-owner JobResults error = %v, want UNAUTHORIZED", err)
	}
	if _, err := svc.JobStatus(context.Background(), "owner-a", "no-such-job"); utils.CodeOf(err) != utils.ErrCodeNotFound {
		t.Errorf("missing job error = %v, want NOT_FOUND", err)
	}
}

func TestSubmitBatch_Validation(t *testing.T) {
	env := &renderEnv{page: resultPage}
	svc := newTestService(t, env, func(o *Options) { o.MaxBatchSize = 2 })

	ctx := context.Background()
	if _, err := svc.SubmitBatch(ctx, "", []string{"https://sportstimingsolutions.in/r/1"}); err == nil {
		t.Error("empty owner should be rejected")
	}
	if _, err := svc.SubmitBatch(ctx, "owner-a", nil); err == nil {
		t.Error("empty batch should be rejected")
	}
	urls := []string{
		"https://sportstimingsolutions.in/r/1",
		"https://sportstimingsolutions.in/r/2",
		"https://sportstimingsolutions.in/r/3",
	}
	if _, err := svc.SubmitBatch(ctx, "owner-a", urls); err == nil {
		t.Error("oversized batch should be rejected")
	}
}

func TestSubmitBatch_ConcurrencyBound(t *testing.T) {
	env := &renderEnv{page: resultPage, delay: 20 * time.Millisecond}
	svc := newTestService(t, env, nil)

	urls := make([]string, 10)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://sportstimingsolutions.in/results/%d", 5000+i)
	}
	job, err := svc.SubmitBatch(context.Background(), "owner-a", urls)
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}

	done := waitForJob(t, svc, "owner-a", job.ID)
	if done.SuccessCount != 10 {
		t.Fatalf("success = %d, want 10", done.SuccessCount)
	}
	if peak := env.peak.Load(); peak > 3 {
		t.Errorf("peak concurrent renders = %d, want <= 3", peak)
	}
	if got := env.renders.Load(); got != 10 {
		t.Errorf("renders = %d, want 10", got)
	}
}

func TestRefresh_BypassesCache(t *testing.T) {
	env := &renderEnv{page: resultPage}
	svc := newTestService(t, env, nil)

	url := "https://sportstimingsolutions.in/results/6001"
	job, err := svc.SubmitBatch(context.Background(), "owner-a", []string{url})
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}
	waitForJob(t, svc, "owner-a", job.ID)
	if got := env.renders.Load(); got != 1 {
		t.Fatalf("renders = %d, want 1", got)
	}

	// Refresh must re-render even though a fresh cache entry exists.
	result, err := svc.Refresh(context.Background(), "owner-a", url)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if result.ParticipantName == nil || *result.ParticipantName != "Asha Patel" {
		t.Errorf("refresh result participant = %v", result.ParticipantName)
	}
	if got := env.renders.Load(); got != 2 {
		t.Errorf("renders after refresh = %d, want 2", got)
	}

	// The refresh wrote a second entry for the owner.
	recent, err := svc.RecentResults(context.Background(), "owner-a", 10)
	if err != nil {
		t.Fatalf("RecentResults failed: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("recent results = %d, want 2", len(recent))
	}
}

func TestRefresh_InvalidURL(t *testing.T) {
	env := &renderEnv{page: resultPage}
	svc := newTestService(t, env, nil)

	_, err := svc.Refresh(context.Background(), "owner-a", "::nope::")
	if utils.CodeOf(err) != utils.ErrCodeInvalidURL {
		t.Errorf("error = %v, want INVALID_URL", err)
	}
	if got := env.renders.Load(); got != 0 {
		t.Errorf("renders = %d, want 0", got)
	}
}

// faultyStore fails result inserts on demand to simulate a storage outage
// mid-job.
type faultyStore struct {
	store.Store
	failInserts atomic.Bool
}

func (f *faultyStore) InsertResult(ctx context.Context, rec *types.JobResultRecord) error {
	if f.failInserts.Load() {
		return errors.New("disk full")
	}
	return f.Store.InsertResult(ctx, rec)
}

func TestSubmitBatch_StorageFaultFailsJob(t *testing.T) {
	env := &renderEnv{page: resultPage}

	inner, err := store.Open(store.Config{Driver: "sqlite3", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { inner.Close() })
	faulty := &faultyStore{Store: inner}

	svc := newTestService(t, env, func(o *Options) { o.Store = faulty })

	faulty.failInserts.Store(true)
	job, err := svc.SubmitBatch(context.Background(), "owner-a",
		[]string{"https://sportstimingsolutions.in/results/7001"})
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}

	done := waitForJob(t, svc, "owner-a", job.ID)
	if done.Status != types.JobStatusFailed {
		t.Errorf("job status = %q, want failed", done.Status)
	}
}

func TestHostLimiter(t *testing.T) {
	ctx := context.Background()

	// Disabled limiter never blocks.
	if err := newHostLimiter(0, 0).Wait(ctx, "a.example"); err != nil {
		t.Fatalf("disabled limiter returned error: %v", err)
	}

	// A tiny rate with an exhausted burst respects context cancellation.
	lim := newHostLimiter(0.01, 1)
	if err := lim.Wait(ctx, "a.example"); err != nil {
		t.Fatalf("first token should be immediate: %v", err)
	}
	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := lim.Wait(cancelled, "a.example"); err == nil {
		t.Error("exhausted limiter should fail once the context expires")
	}

	// Hosts are limited independently.
	if err := lim.Wait(ctx, "b.example"); err != nil {
		t.Errorf("different host should have its own budget: %v", err)
	}
}
