package citation

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/CiteScope/internal/config"
	"github.com/turtacn/CiteScope/internal/domain/citation"
	"github.com/turtacn/CiteScope/internal/domain/claim"
	redisinfra "github.com/turtacn/CiteScope/internal/infrastructure/database/redis"
	"github.com/turtacn/CiteScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// EventPublisher publishes pipeline lifecycle events.  kafka.Producer
// implements it; tests substitute a recorder.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, eventType, key string, payload interface{}) error
}

// JobController owns the citation-job lifecycle: atomic enqueue, the
// processing run with bounded fan-out and timeout, and the bounded await.
type JobController struct {
	jobs        citation.JobRepository
	matches     citation.MatchRepository
	matcher     *Matcher
	claims      claim.Source
	locks       redisinfra.LockFactory
	invalidator *Invalidator
	events      EventPublisher
	cfg         config.PipelineConfig
	logger      logging.Logger
	metrics     *prometheus.PipelineMetrics
}

func NewJobController(
	jobs citation.JobRepository,
	matches citation.MatchRepository,
	matcher *Matcher,
	claims claim.Source,
	locks redisinfra.LockFactory,
	invalidator *Invalidator,
	events EventPublisher,
	cfg config.PipelineConfig,
	log logging.Logger,
) *JobController {
	return &JobController{
		jobs:        jobs,
		matches:     matches,
		matcher:     matcher,
		claims:      claims,
		locks:       locks,
		invalidator: invalidator,
		events:      events,
		cfg:         cfg,
		logger:      log,
	}
}

// WithMetrics attaches pipeline metrics.
func (c *JobController) WithMetrics(metrics *prometheus.PipelineMetrics) *JobController {
	c.metrics = metrics
	return c
}

// Enqueue creates a pending job for the (search, reference) pair and
// dispatches it to the worker pool.  At most one non-terminal job may exist
// per pair: the database's partial unique index is the source of truth, the
// redis mutex only short-circuits racing enqueues before they hit it.
func (c *JobController) Enqueue(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID, ref string, elementIDs []string) (*citation.Job, error) {
	if searchID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "search history id is required")
	}
	if ref == "" {
		return nil, errors.New(errors.ErrCodeValidation, "reference number is required")
	}

	if c.locks != nil {
		mu := c.locks.NewMutex("enqueue:"+string(searchID)+":"+ref,
			redisinfra.WithLockTTL(10*time.Second))
		acquired, err := mu.TryLock(ctx)
		if err != nil {
			c.logger.Warn("enqueue lock unavailable, relying on unique index", logging.Err(err))
		} else if !acquired {
			c.countEnqueue("duplicate")
			return nil, errors.New(errors.ErrCodeDuplicateJob, "an enqueue for this reference is already in progress").
				WithDetail("search=" + string(searchID) + " reference=" + ref)
		} else {
			defer mu.Unlock(ctx)
		}
	}

	job := citation.NewJob(scope, searchID, ref, elementIDs)
	if err := c.jobs.CreateUnique(ctx, job); err != nil {
		if errors.IsCode(err, errors.ErrCodeDuplicateJob) {
			c.countEnqueue("duplicate")
		}
		return nil, err
	}
	c.countEnqueue("accepted")

	if c.events != nil {
		payload := kafka.JobEnqueuedPayload{
			JobID:           string(job.ID),
			SearchHistoryID: string(searchID),
			ReferenceNumber: ref,
			TenantID:        string(scope.TenantID),
			ProjectID:       string(scope.ProjectID),
			UserID:          string(scope.UserID),
			EnqueuedAt:      job.CreatedAt,
		}
		if err := c.events.PublishEvent(ctx, kafka.TopicJobEnqueued, "job.enqueued", string(searchID), payload); err != nil {
			// Without the dispatch event no worker will ever pick the job
			// up, so fail it rather than leave it pending forever.
			if _, failErr := c.jobs.FailFromActive(ctx, scope, job.ID, "dispatch failed: "+err.Error()); failErr != nil {
				c.logger.Error("failed to fail undispatched job",
					logging.String("job", string(job.ID)), logging.Err(failErr))
			}
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to dispatch citation job")
		}
	}

	c.logger.Info("citation job enqueued",
		logging.String("job", string(job.ID)),
		logging.String("search", string(searchID)),
		logging.String("reference", ref))
	return job, nil
}

// Run executes a pending job: claims it, fans element matches out with
// bounded concurrency, absorbs per-element failures, ranks the survivors,
// and completes through the terminal-status write guard.  The configured
// job timeout bounds the whole processing phase.
func (c *JobController) Run(ctx context.Context, job *citation.Job) error {
	claimed, err := c.jobs.MarkProcessing(ctx, job.Scope, job.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return errors.New(errors.ErrCodeJobStateInvalid, "job is not pending").
			WithDetail("job=" + string(job.ID))
	}
	if c.metrics != nil {
		c.metrics.ActiveJobs.WithLabelValues().Inc()
		defer c.metrics.ActiveJobs.WithLabelValues().Dec()
	}
	start := time.Now()

	timeout := c.cfg.JobTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cl, err := c.claims.GetClaim(jobCtx, job.Scope, job.SearchHistoryID)
	if err != nil {
		return c.failJob(ctx, job, start, "claim", err)
	}
	elements, err := cl.SelectElements(job.ElementIDs)
	if err != nil {
		return c.failJob(ctx, job, start, "invalid_elements", err)
	}

	matches, failures, err := c.matchElements(jobCtx, job, elements)
	if err != nil {
		return c.failJob(ctx, job, start, "reference_unavailable", err)
	}

	if jobCtx.Err() == context.DeadlineExceeded {
		timeoutErr := errors.Newf(errors.ErrCodeJobTimeout,
			"job exceeded its %s processing timeout", timeout)
		return c.failJob(ctx, job, start, "timeout", timeoutErr)
	}
	if len(matches) == 0 {
		noOutput := errors.New(errors.ErrCodeInternal, "no element produced a usable match")
		if len(failures) > 0 {
			noOutput = noOutput.WithDetail("first_failure=" + failures[0].Error)
		}
		return c.failJob(ctx, job, start, "no_output", noOutput)
	}

	citation.Rank(matches)
	if err := c.matches.SaveAll(jobCtx, job.Scope, matches); err != nil {
		return c.failJob(ctx, job, start, "persist", err)
	}

	result := &citation.JobResult{Matches: matches, Failures: failures}
	completed, err := c.jobs.CompleteFromProcessing(ctx, job.Scope, job.ID, result)
	if err != nil {
		return err
	}
	if !completed {
		// The write guard fired: the job went terminal (timed out, force
		// failed) while we were working.  The late result is discarded.
		c.logger.Warn("completion rejected by write guard",
			logging.String("job", string(job.ID)))
		return errors.New(errors.ErrCodeJobStateInvalid, "job reached a terminal state during processing").
			WithDetail("job=" + string(job.ID))
	}
	job.Status = citation.JobCompleted
	job.Result = result

	if c.metrics != nil {
		prometheus.RecordJobCompleted(c.metrics, time.Since(start))
	}
	if c.events != nil {
		payload := kafka.JobCompletedPayload{
			JobID:           string(job.ID),
			SearchHistoryID: string(job.SearchHistoryID),
			ReferenceNumber: job.Reference,
			MatchCount:      len(matches),
			CompletedAt:     time.Now().UTC(),
		}
		if err := c.events.PublishEvent(ctx, kafka.TopicJobCompleted, "job.completed", string(job.SearchHistoryID), payload); err != nil {
			c.logger.Error("failed to publish job completion", logging.Err(err))
		}
	}

	// Invalidate before returning so a poller that sees the completed job
	// never reads a stale cached match list.
	if err := c.invalidator.InvalidateMatches(ctx, job.Scope, job.SearchHistoryID); err != nil {
		c.logger.Error("cache invalidation failed after completion",
			logging.String("search", string(job.SearchHistoryID)), logging.Err(err))
	}

	c.logger.Info("citation job completed",
		logging.String("job", string(job.ID)),
		logging.Int("matches", len(matches)),
		logging.Int("failures", len(failures)),
		logging.Duration("took", time.Since(start)))
	return nil
}

// matchElements fans the element matches out under the concurrency bound.
// Element-local failures are absorbed into the failure list and only the
// surviving matches travel on.  An unreadable reference is a hard error
// that aborts the fan-out: no element can succeed without the document,
// and the job must fail with that code rather than a generic no-output
// failure.
func (c *JobController) matchElements(ctx context.Context, job *citation.Job, elements []claim.Element) ([]*citation.Match, []citation.ElementFailure, error) {
	concurrency := c.cfg.MatchConcurrency
	if concurrency < 1 {
		concurrency = 4
	}

	var mu sync.Mutex
	matches := make([]*citation.Match, 0, len(elements))
	var failures []citation.ElementFailure

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, element := range elements {
		element := element
		g.Go(func() error {
			match, err := c.matcher.Match(gctx, job.Scope, job.SearchHistoryID, element, job.Reference)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.IsCode(err, errors.ErrCodeReferenceUnavailable) {
					return err
				}
				failures = append(failures, citation.ElementFailure{
					ElementID: element.ID,
					Error:     err.Error(),
				})
				return nil
			}
			matches = append(matches, match)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return matches, failures, nil
}

func (c *JobController) failJob(ctx context.Context, job *citation.Job, start time.Time, reason string, cause error) error {
	if _, err := c.jobs.FailFromActive(ctx, job.Scope, job.ID, cause.Error()); err != nil {
		c.logger.Error("failed to record job failure",
			logging.String("job", string(job.ID)), logging.Err(err))
	}
	job.Status = citation.JobFailed
	job.Error = cause.Error()

	if c.metrics != nil {
		prometheus.RecordJobFailed(c.metrics, reason, time.Since(start))
	}
	if c.events != nil {
		payload := kafka.JobFailedPayload{
			JobID:           string(job.ID),
			SearchHistoryID: string(job.SearchHistoryID),
			ReferenceNumber: job.Reference,
			Error:           cause.Error(),
			FailedAt:        time.Now().UTC(),
		}
		if err := c.events.PublishEvent(ctx, kafka.TopicJobFailed, "job.failed", string(job.SearchHistoryID), payload); err != nil {
			c.logger.Error("failed to publish job failure", logging.Err(err))
		}
	}

	c.logger.Warn("citation job failed",
		logging.String("job", string(job.ID)),
		logging.String("reason", reason),
		logging.Err(cause))
	return cause
}

// Await polls until the job reaches a terminal state or maxWait elapses.
func (c *JobController) Await(ctx context.Context, scope common.Scope, id common.ID, maxWait time.Duration) (*citation.Job, error) {
	poll := c.cfg.AwaitPollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}

	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		job, err := c.jobs.GetByID(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "await cancelled")
		case <-deadline.C:
			return nil, errors.Newf(errors.ErrCodeTimeout,
				"job did not reach a terminal state within %s", maxWait)
		case <-ticker.C:
		}
	}
}

func (c *JobController) countEnqueue(result string) {
	if c.metrics != nil {
		c.metrics.JobsEnqueuedTotal.WithLabelValues(result).Inc()
	}
}

//Personal.AI order the ending
