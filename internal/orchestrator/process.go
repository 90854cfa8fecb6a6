// internal/orchestrator/process.go
package orchestrator

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/racepull/racepull/internal/platform"
	"github.com/racepull/racepull/internal/source"
	"github.com/racepull/racepull/internal/store"
	"github.com/racepull/racepull/internal/utils"
	"github.com/racepull/racepull/pkg/types"
)

// jobRun carries the per-job state shared by the workers. fault flips when a
// storage write fails; remaining URLs are skipped and the job ends failed.
type jobRun struct {
	job   *types.Job
	fault atomic.Bool
}

// processJob runs one submitted batch to a terminal state. It is the only
// goroutine that transitions this job, so the forward-only guard in the
// store is a backstop rather than the coordination mechanism.
func (s *Service) processJob(job *types.Job, urls []string) {
	defer s.wg.Done()

	ctx := context.Background()
	log := s.logger.WithFields(map[string]interface{}{
		"job_id": job.ID,
		"owner":  job.Owner,
		"urls":   len(urls),
	})

	s.metrics.JobsActive.Inc()
	defer s.metrics.JobsActive.Dec()

	run := &jobRun{job: job}

	if err := s.store.TransitionJob(ctx, job.ID, types.JobStatusQueued, types.JobStatusProcessing); err != nil {
		log.Errorf("failed to start job: %v", err)
		s.finishJob(ctx, log, job, types.JobStatusQueued, types.JobStatusFailed)
		return
	}
	log.Info("job started")

	workers := s.concurrency
	if workers > len(urls) {
		workers = len(urls)
	}

	queue := make(chan string)
	var workerWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			for rawURL := range queue {
				if run.fault.Load() {
					continue
				}
				s.processURL(ctx, run, rawURL)
			}
		}()
	}
	for _, rawURL := range urls {
		queue <- rawURL
	}
	close(queue)
	workerWG.Wait()

	to := types.JobStatusCompleted
	if run.fault.Load() {
		to = types.JobStatusFailed
	}
	s.finishJob(ctx, log, job, types.JobStatusProcessing, to)
}

func (s *Service) finishJob(ctx context.Context, log utils.Logger, job *types.Job, from, to types.JobStatus) {
	if err := s.store.TransitionJob(ctx, job.ID, from, to); err != nil {
		log.Errorf("failed to finish job as %s: %v", to, err)
		return
	}
	s.metrics.JobsTotal.WithLabelValues(string(to)).Inc()
	log.Infof("job finished: %s", to)
}

// processURL runs the full per-URL pipeline: normalize, consult the cache,
// and only on a miss detect the platform and render. A failure on one URL is
// recorded and counted without touching its siblings.
func (s *Service) processURL(ctx context.Context, run *jobRun, rawURL string) {
	now := time.Now().UTC()
	rec := &types.JobResultRecord{
		JobID:     run.job.ID,
		Owner:     run.job.Owner,
		URL:       rawURL,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cacheTTL),
	}

	normalized, hash, err := source.NormalizeAndHash(rawURL)
	if err != nil {
		s.recordError(ctx, run, rec, utils.NewInvalidURL(rawURL, err))
		return
	}
	rec.URL = normalized
	rec.URLHash = hash

	cached, err := s.store.LookupCache(ctx, run.job.Owner, hash, now)
	if err == nil {
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		rec.Status = types.ResultStatusCompleted
		rec.Result = cached.Result
		// A served entry keeps the original expiry; hits never extend
		// freshness without a re-render.
		rec.ExpiresAt = cached.ExpiresAt
		s.recordOutcome(ctx, run, rec, true)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.fault(run, "cache lookup", err)
		return
	}
	s.metrics.CacheLookups.WithLabelValues("miss").Inc()

	result, err := s.extract(ctx, normalized)
	if err != nil {
		s.recordError(ctx, run, rec, err)
		return
	}

	rec.Status = types.ResultStatusCompleted
	rec.Result = *result
	s.recordOutcome(ctx, run, rec, true)
}

// extract detects the platform for a URL, renders it through the pooled
// browser under the retry budget, and applies the profile's pattern chains.
func (s *Service) extract(ctx context.Context, normalized string) (*types.ExtractionResult, error) {
	profile, err := s.registry.Detect(normalized)
	if err != nil {
		return nil, utils.NewUnsupportedPlatform(normalized)
	}

	if host := hostOf(normalized); host != "" {
		if err := s.limiter.Wait(ctx, host); err != nil {
			return nil, err
		}
	}

	var text string
	err = utils.Retry(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) error {
		rendered, renderErr := s.render(ctx, normalized)
		if renderErr != nil {
			return renderErr
		}
		text = rendered
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := platform.Extract(text, profile)
	s.observeFields(result)
	return result, nil
}

// render performs one render attempt through the pool. The pool's capacity
// is the concurrency bound; holding a renderer for the duration of the call
// is what enforces it.
func (s *Service) render(ctx context.Context, normalized string) (string, error) {
	r, err := s.pool.Get(ctx)
	if err != nil {
		return "", utils.NewRenderFailure(normalized, err)
	}

	s.metrics.RendersInFlight.Inc()
	start := time.Now()
	text, err := r.Render(ctx, normalized)
	s.metrics.RendersInFlight.Dec()
	s.metrics.ObserveRender(time.Since(start), err)

	if err != nil {
		// A failed render can leave the browser mid-navigation; retire it
		// rather than handing the next worker a dirty session.
		s.pool.Discard(r)
		return "", utils.NewRenderFailure(normalized, err)
	}
	s.pool.Put(r)
	return text, nil
}

func (s *Service) recordError(ctx context.Context, run *jobRun, rec *types.JobResultRecord, cause error) {
	msg := cause.Error()
	rec.Status = types.ResultStatusError
	rec.ErrorMessage = &msg
	s.logger.WithFields(map[string]interface{}{
		"job_id": run.job.ID,
		"url":    rec.URL,
	}).Warnf("extraction failed: %v", cause)
	s.recordOutcome(ctx, run, rec, false)
}

// recordOutcome persists the per-URL row and bumps the job counters. These
// writes are job bookkeeping: if either fails the job cannot report honest
// progress, so the whole job is marked faulted.
func (s *Service) recordOutcome(ctx context.Context, run *jobRun, rec *types.JobResultRecord, success bool) {
	if err := s.store.InsertResult(ctx, rec); err != nil {
		s.fault(run, "insert result", err)
		return
	}
	if err := s.store.IncrementJobCounters(ctx, run.job.ID, success); err != nil {
		s.fault(run, "increment counters", err)
		return
	}
	s.metrics.URLsProcessed.WithLabelValues(string(rec.Status)).Inc()
}

func (s *Service) fault(run *jobRun, op string, err error) {
	run.fault.Store(true)
	s.logger.WithField("job_id", run.job.ID).Errorf("storage fault during %s: %v", op, err)
}

// observeFields counts matched versus null per field so pattern drift on a
// vendor shows up as a rising null rate.
func (s *Service) observeFields(result *types.ExtractionResult) {
	observe := func(field platform.Field, matched bool) {
		outcome := "null"
		if matched {
			outcome = "matched"
		}
		s.metrics.ExtractionFields.WithLabelValues(string(field), outcome).Inc()
	}
	observe(platform.FieldRaceName, result.RaceName != nil)
	observe(platform.FieldParticipantName, result.ParticipantName != nil)
	observe(platform.FieldCategory, result.Category != nil)
	observe(platform.FieldFinishTime, result.FinishTime != nil)
	observe(platform.FieldBibNumber, result.BibNumber != nil)
	observe(platform.FieldOverallRank, result.OverallRank != nil)
	observe(platform.FieldCategoryRank, result.CategoryRank != nil)
	observe(platform.FieldPace, result.Pace != nil)
}

func hostOf(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
