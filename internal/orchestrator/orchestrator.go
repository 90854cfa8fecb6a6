// internal/orchestrator/orchestrator.go
//
// Package orchestrator drives batch extraction jobs: it owns the worker
// pool, the retry policy and the cache-aware per-URL pipeline, and exposes
// the service operations the API surface calls.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/racepull/racepull/internal/browser"
	"github.com/racepull/racepull/internal/monitoring"
	"github.com/racepull/racepull/internal/platform"
	"github.com/racepull/racepull/internal/source"
	"github.com/racepull/racepull/internal/store"
	"github.com/racepull/racepull/internal/utils"
	"github.com/racepull/racepull/pkg/types"
)

// Options configures a Service. Store and Pool are required; everything
// else falls back to the documented defaults.
type Options struct {
	Store    store.Store
	Pool     *browser.Pool
	Registry *platform.Registry
	Metrics  *monitoring.Metrics
	Logger   utils.Logger

	// Concurrency bounds in-flight renders per job.
	Concurrency int
	// MaxBatchSize caps URLs per submission.
	MaxBatchSize int
	// RetryAttempts and RetryDelay shape the per-URL retry budget.
	RetryAttempts int
	RetryDelay    time.Duration
	// CacheTTL is how long a successful extraction satisfies lookups.
	CacheTTL time.Duration
	// PerHostRPS throttles renders per vendor host; zero disables.
	PerHostRPS float64
	Burst      int
}

// Service is the batch extraction orchestrator.
type Service struct {
	store    store.Store
	pool     *browser.Pool
	registry *platform.Registry
	metrics  *monitoring.Metrics
	logger   utils.Logger
	limiter  *hostLimiter

	concurrency   int
	maxBatchSize  int
	retryAttempts int
	retryDelay    time.Duration
	cacheTTL      time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewService creates the orchestrator.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Pool == nil {
		return nil, fmt.Errorf("renderer pool is required")
	}
	if opts.Registry == nil {
		opts.Registry = platform.DefaultRegistry()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics("")
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewLogger()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 100
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = utils.DefaultRetryAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = utils.DefaultRetryDelay
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}

	return &Service{
		store:         opts.Store,
		pool:          opts.Pool,
		registry:      opts.Registry,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		limiter:       newHostLimiter(opts.PerHostRPS, opts.Burst),
		concurrency:   opts.Concurrency,
		maxBatchSize:  opts.MaxBatchSize,
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
		cacheTTL:      opts.CacheTTL,
	}, nil
}

// SubmitBatch creates a job for the given URLs and starts processing it in
// the background. The call returns as soon as the job record exists; the
// caller observes progress by polling JobStatus.
func (s *Service) SubmitBatch(ctx context.Context, owner string, urls []string) (*types.Job, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required")
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one URL is required")
	}
	if len(urls) > s.maxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds limit of %d URLs", len(urls), s.maxBatchSize)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("service is shutting down")
	}

	job := &types.Job{
		ID:        uuid.NewString(),
		Owner:     owner,
		TotalURLs: len(urls),
		Status:    types.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		s.mu.Unlock()
		return nil, utils.NewStorageError("create job", err)
	}

	s.wg.Add(1)
	s.mu.Unlock()

	submitted := make([]string, len(urls))
	copy(submitted, urls)
	go s.processJob(job, submitted)

	return job, nil
}

// JobStatus returns a job's counters and status for its owner.
func (s *Service) JobStatus(ctx context.Context, owner, jobID string) (*types.Job, error) {
	return s.authorizedJob(ctx, owner, jobID)
}

// JobResults returns the per-URL records written for a job so far.
func (s *Service) JobResults(ctx context.Context, owner, jobID string) ([]types.JobResultRecord, error) {
	if _, err := s.authorizedJob(ctx, owner, jobID); err != nil {
		return nil, err
	}
	records, err := s.store.ResultsForJob(ctx, jobID)
	if err != nil {
		return nil, utils.NewStorageError("list job results", err)
	}
	return records, nil
}

// RecentResults returns the owner's newest records across all jobs.
func (s *Service) RecentResults(ctx context.Context, owner string, limit int) ([]types.JobResultRecord, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required")
	}
	records, err := s.store.RecentResults(ctx, owner, limit)
	if err != nil {
		return nil, utils.NewStorageError("list recent results", err)
	}
	return records, nil
}

// Refresh re-extracts a single URL, bypassing the cache lookup. The fresh
// outcome is still persisted as a new cache entry.
func (s *Service) Refresh(ctx context.Context, owner, rawURL string) (*types.ExtractionResult, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required")
	}

	normalized, hash, err := source.NormalizeAndHash(rawURL)
	if err != nil {
		return nil, utils.NewInvalidURL(rawURL, err)
	}

	result, extractErr := s.extract(ctx, normalized)

	now := time.Now().UTC()
	rec := &types.JobResultRecord{
		Owner:     owner,
		URL:       normalized,
		URLHash:   hash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cacheTTL),
	}
	if extractErr != nil {
		msg := extractErr.Error()
		rec.Status = types.ResultStatusError
		rec.ErrorMessage = &msg
	} else {
		rec.Status = types.ResultStatusCompleted
		rec.Result = *result
	}
	if storeErr := s.store.InsertResult(ctx, rec); storeErr != nil {
		s.logger.WithField("url", normalized).Errorf("failed to persist refresh entry: %v", storeErr)
	}

	if extractErr != nil {
		return nil, extractErr
	}
	return result, nil
}

// SupportedPlatforms lists registered platform names in precedence order.
func (s *Service) SupportedPlatforms() []string {
	return s.registry.Names()
}

// Close stops accepting new submissions, waits for running jobs to finish
// and shuts down the renderer pool. There is no mid-job cancellation: a job
// that reached processing runs to completion.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	return s.pool.Close()
}

func (s *Service) authorizedJob(ctx context.Context, owner, jobID string) (*types.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, utils.NewNotFound(jobID)
	}
	if err != nil {
		return nil, utils.NewStorageError("get job", err)
	}
	if job.Owner != owner {
		return nil, utils.NewUnauthorized(jobID)
	}
	return job, nil
}
