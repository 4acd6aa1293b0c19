package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/codetube/codetube/internal/metrics"
	"github.com/codetube/codetube/internal/store"
)

const (
	// DefaultInterval is how often each worker goroutine checks for pending jobs.
	DefaultInterval = 500 * time.Millisecond
	// DefaultStaleAfter is how long a job may stay running before another
	// worker assumes its owner died and claims it again.
	DefaultStaleAfter = 10 * time.Minute

	statusWriteTimeout = 5 * time.Second
)

// JobExecutor executes a single job by type and payload.
type JobExecutor interface {
	ExecuteJob(ctx context.Context, jobID uuid.UUID, jobType string, payload json.RawMessage) error
}

// Worker polls the database for pending jobs and executes them concurrently.
type Worker struct {
	store       store.Querier
	executor    JobExecutor
	concurrency int
	interval    time.Duration
	staleAfter  time.Duration
	logger      *zap.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithStaleAfter overrides DefaultStaleAfter. It must exceed the longest run.
func WithStaleAfter(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.staleAfter = d
		}
	}
}

// WithLogger sets the worker logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) {
		w.logger = l
	}
}

func New(q store.Querier, executor JobExecutor, concurrency int, opts ...Option) *Worker {
	w := &Worker{
		store:       q,
		executor:    executor,
		concurrency: concurrency,
		interval:    DefaultInterval,
		staleAfter:  DefaultStaleAfter,
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(w)
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	return w
}

// Start spawns concurrency goroutines that each poll for jobs every interval.
// It blocks until ctx is cancelled and every in-flight job has recorded its
// status.
func (w *Worker) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processNext(ctx)
		}
	}
}

func (w *Worker) processNext(ctx context.Context) {
	job, err := w.store.ClaimNextJob(ctx, time.Now().Add(-w.staleAfter))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || ctx.Err() != nil {
			return
		}
		w.logger.Error("claim job", zap.Error(err))
		return
	}
	log := w.logger.With(zap.Stringer("job_id", job.ID), zap.String("job_type", job.JobType), zap.Int32("attempt", job.Attempt))

	execErr := w.executor.ExecuteJob(ctx, job.ID, job.JobType, json.RawMessage(job.Payload))

	// The job outcome is written even when shutdown cancelled ctx.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	now := time.Now()
	if execErr == nil {
		_, err = w.store.UpdateJobStatus(wctx, store.UpdateJobStatusParams{
			ID:          job.ID,
			Status:      "completed",
			Error:       pgtype.Text{Valid: false},
			CompletedAt: &now,
			RunAt:       job.RunAt,
		})
		if err != nil {
			log.Error("mark completed", zap.Error(err))
		}
		metrics.ObserveJob(job.JobType, "completed")
		log.Debug("job completed")
		return
	}

	// Job failed: retry with backoff unless the error is permanent or attempts are used up.
	// A run interrupted by shutdown goes straight back to the queue.
	status := "failed"
	runAt := job.RunAt
	if ctx.Err() != nil && !IsPermanent(execErr) {
		status = "pending"
		runAt = now
		execErr = fmt.Errorf("interrupted by shutdown: %w", execErr)
	} else if job.Attempt < job.MaxAttempts && !IsPermanent(execErr) {
		status = "pending"
		backoff := time.Duration(int64(1)<<uint(job.Attempt)) * 10 * time.Second
		runAt = now.Add(backoff)
	}
	_, err = w.store.UpdateJobStatus(wctx, store.UpdateJobStatusParams{
		ID:          job.ID,
		Status:      status,
		Error:       pgtype.Text{String: execErr.Error(), Valid: true},
		CompletedAt: nil,
		RunAt:       runAt,
	})
	if err != nil {
		log.Error("update job status", zap.Error(err))
	}
	metrics.ObserveJob(job.JobType, status)
	log.Warn("job failed", zap.String("status", status), zap.Time("run_at", runAt), zap.Error(execErr))
}
