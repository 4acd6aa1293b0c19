package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codetube/codetube/internal/store"
	"github.com/codetube/codetube/internal/worker"
)

// stubQuerier implements store.Querier for worker tests.
// Only ClaimNextJob and UpdateJobStatus are exercised; all others return zero values.
type stubQuerier struct {
	claimNextJobFn    func(ctx context.Context, staleBefore time.Time) (store.Job, error)
	updateJobStatusFn func(ctx context.Context, arg store.UpdateJobStatusParams) (store.Job, error)
}

func (s *stubQuerier) ClaimNextJob(ctx context.Context, staleBefore time.Time) (store.Job, error) {
	if s.claimNextJobFn != nil {
		return s.claimNextJobFn(ctx, staleBefore)
	}
	return store.Job{}, pgx.ErrNoRows
}
func (s *stubQuerier) UpdateJobStatus(ctx context.Context, arg store.UpdateJobStatusParams) (store.Job, error) {
	if s.updateJobStatusFn != nil {
		return s.updateJobStatusFn(ctx, arg)
	}
	return store.Job{}, nil
}
func (s *stubQuerier) CreateJob(ctx context.Context, arg store.CreateJobParams) (store.Job, error) {
	return store.Job{}, nil
}
func (s *stubQuerier) GetJob(ctx context.Context, id uuid.UUID) (store.Job, error) {
	return store.Job{}, nil
}
func (s *stubQuerier) InsertCodeExecution(ctx context.Context, arg store.InsertCodeExecutionParams) (store.CodeExecution, error) {
	return store.CodeExecution{}, nil
}
func (s *stubQuerier) GetCodeExecution(ctx context.Context, jobID uuid.UUID) (store.CodeExecution, error) {
	return store.CodeExecution{}, nil
}

// stubExecutor implements worker.JobExecutor for tests.
type stubExecutor struct {
	executeJobFn func(ctx context.Context, jobID uuid.UUID, jobType string, payload json.RawMessage) error
}

func (s *stubExecutor) ExecuteJob(ctx context.Context, jobID uuid.UUID, jobType string, payload json.RawMessage) error {
	if s.executeJobFn != nil {
		return s.executeJobFn(ctx, jobID, jobType, payload)
	}
	return nil
}

// runWorkerUntilDone starts a single-goroutine worker and waits for done to be closed or the test to time out.
func runWorkerUntilDone(t *testing.T, q store.Querier, exec worker.JobExecutor, done <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	w := worker.New(q, exec, 1, worker.WithInterval(10*time.Millisecond))
	go w.Start(ctx)
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for worker to process job")
	}
}

func makeJob(attempt, maxAttempts int32) store.Job {
	return store.Job{
		ID:          uuid.New(),
		JobType:     "code.run",
		Payload:     []byte(`{}`),
		Status:      "running",
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
		RunAt:       time.Now(),
	}
}

func TestWorker_NoJobs(t *testing.T) {
	// When no jobs are pending the worker should not call UpdateJobStatus.
	updateCalled := false
	q := &stubQuerier{
		updateJobStatusFn: func(_ context.Context, _ store.UpdateJobStatusParams) (store.Job, error) {
			updateCalled = true
			return store.Job{}, nil
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	w := worker.New(q, &stubExecutor{}, 1, worker.WithInterval(10*time.Millisecond))
	w.Start(ctx) // blocks until timeout
	if updateCalled {
		t.Error("UpdateJobStatus should not be called when there are no jobs")
	}
}

func TestWorker_JobSucceeds(t *testing.T) {
	job := makeJob(1, 3)
	var captured store.UpdateJobStatusParams
	done := make(chan struct{})

	var claimCount int
	q := &stubQuerier{
		claimNextJobFn: func(_ context.Context, _ time.Time) (store.Job, error) {
			claimCount++
			if claimCount == 1 {
				return job, nil
			}
			return store.Job{}, pgx.ErrNoRows
		},
		updateJobStatusFn: func(_ context.Context, arg store.UpdateJobStatusParams) (store.Job, error) {
			captured = arg
			close(done)
			return store.Job{}, nil
		},
	}
	runWorkerUntilDone(t, q, &stubExecutor{}, done)

	if captured.Status != "completed" {
		t.Errorf("expected status=completed, got %s", captured.Status)
	}
	if captured.CompletedAt == nil {
		t.Error("expected CompletedAt to be set on success")
	}
	if captured.Error.Valid {
		t.Error("expected Error to be null on success")
	}
}

func TestWorker_JobFailsWithRetry(t *testing.T) {
	// attempt=1, max_attempts=3 → should reset to pending with a future run_at.
	job := makeJob(1, 3)
	execErr := errors.New("provider timeout")
	var captured store.UpdateJobStatusParams
	done := make(chan struct{})

	var claimCount int
	q := &stubQuerier{
		claimNextJobFn: func(_ context.Context, _ time.Time) (store.Job, error) {
			claimCount++
			if claimCount == 1 {
				return job, nil
			}
			return store.Job{}, pgx.ErrNoRows
		},
		updateJobStatusFn: func(_ context.Context, arg store.UpdateJobStatusParams) (store.Job, error) {
			captured = arg
			close(done)
			return store.Job{}, nil
		},
	}
	exec := &stubExecutor{
		executeJobFn: func(_ context.Context, _ uuid.UUID, _ string, _ json.RawMessage) error {
			return execErr
		},
	}
	runWorkerUntilDone(t, q, exec, done)

	if captured.Status != "pending" {
		t.Errorf("expected status=pending for retry, got %s", captured.Status)
	}
	if !captured.Error.Valid || captured.Error.String != execErr.Error() {
		t.Errorf("expected error=%q, got %+v", execErr.Error(), captured.Error)
	}
	if captured.RunAt.Before(time.Now()) {
		t.Error("expected run_at to be in the future for retry backoff")
	}
	if captured.CompletedAt != nil {
		t.Error("expected CompletedAt to be nil on retry")
	}
}

func TestWorker_JobExhaustsRetries(t *testing.T) {
	// attempt=3, max_attempts=3 → should mark as failed, not retry.
	job := makeJob(3, 3)
	execErr := errors.New("permanent failure")
	var captured store.UpdateJobStatusParams
	done := make(chan struct{})

	var claimCount int
	q := &stubQuerier{
		claimNextJobFn: func(_ context.Context, _ time.Time) (store.Job, error) {
			claimCount++
			if claimCount == 1 {
				return job, nil
			}
			return store.Job{}, pgx.ErrNoRows
		},
		updateJobStatusFn: func(_ context.Context, arg store.UpdateJobStatusParams) (store.Job, error) {
			captured = arg
			close(done)
			return store.Job{}, nil
		},
	}
	exec := &stubExecutor{
		executeJobFn: func(_ context.Context, _ uuid.UUID, _ string, _ json.RawMessage) error {
			return execErr
		},
	}
	runWorkerUntilDone(t, q, exec, done)

	if captured.Status != "failed" {
		t.Errorf("expected status=failed after exhausting retries, got %s", captured.Status)
	}
	if !captured.Error.Valid || captured.Error.String != execErr.Error() {
		t.Errorf("expected error=%q, got %+v", execErr.Error(), captured.Error)
	}
}

func TestWorker_BackoffGrowsWithAttempt(t *testing.T) {
	// Each successive retry should schedule run_at further into the future.
	cases := []struct {
		attempt    int32
		minBackoff time.Duration
	}{
		{1, 20*time.Second - time.Second}, // 2^1 * 10s = 20s
		{2, 40*time.Second - time.Second}, // 2^2 * 10s = 40s
		{3, 80*time.Second - time.Second}, // 2^3 * 10s = 80s
	}

	for _, tc := range cases {
		tc := tc
		t.Run("attempt"+string(rune('0'+tc.attempt)), func(t *testing.T) {
			job := makeJob(tc.attempt, 10) // max_attempts=10 so always retries
			var captured store.UpdateJobStatusParams
			done := make(chan struct{})
			var claimCount int
			q := &stubQuerier{
				claimNextJobFn: func(_ context.Context, _ time.Time) (store.Job, error) {
					claimCount++
					if claimCount == 1 {
						return job, nil
					}
					return store.Job{}, pgx.ErrNoRows
				},
				updateJobStatusFn: func(_ context.Context, arg store.UpdateJobStatusParams) (store.Job, error) {
					captured = arg
					close(done)
					return store.Job{}, nil
				},
			}
			exec := &stubExecutor{
				executeJobFn: func(_ context.Context, _ uuid.UUID, _ string, _ json.RawMessage) error {
					return errors.New("fail")
				},
			}
			runWorkerUntilDone(t, q, exec, done)

			minRunAt := time.Now().Add(tc.minBackoff)
			if captured.RunAt.Before(minRunAt) {
				t.Errorf("attempt %d: expected run_at >= %v, got %v", tc.attempt, minRunAt, captured.RunAt)
			}

			// Verify pgtype.Text is set correctly
			if captured.Error.String != "fail" {
				t.Errorf("expected error=fail, got %q", captured.Error.String)
			}
		})
	}
}


func TestWorker_PermanentErrorSkipsRetry(t *testing.T) {
	// attempt=1, max_attempts=3, but the executor marks the error permanent.
	job := makeJob(1, 3)
	execErr := worker.Permanent(errors.New("judge0 api key is not configured"))
	var captured store.UpdateJobStatusParams
	done := make(chan struct{})

	var claimCount int
	q := &stubQuerier{
		claimNextJobFn: func(_ context.Context, _ time.Time) (store.Job, error) {
			claimCount++
			if claimCount == 1 {
				return job, nil
			}
			return store.Job{}, pgx.ErrNoRows
		},
		updateJobStatusFn: func(_ context.Context, arg store.UpdateJobStatusParams) (store.Job, error) {
			captured = arg
			close(done)
			return store.Job{}, nil
		},
	}
	exec := &stubExecutor{
		executeJobFn: func(_ context.Context, _ uuid.UUID, _ string, _ json.RawMessage) error {
			return execErr
		},
	}
	runWorkerUntilDone(t, q, exec, done)

	if captured.Status != "failed" {
		t.Errorf("expected status=failed for permanent error, got %s", captured.Status)
	}
	if captured.Error.String != "judge0 api key is not configured" {
		t.Errorf("unexpected error text %q", captured.Error.String)
	}
	if !captured.RunAt.Equal(job.RunAt) {
		t.Error("run_at should not move for a permanent failure")
	}
}

func TestWorker_PassesJobIDToExecutor(t *testing.T) {
	job := makeJob(1, 3)
	var gotID uuid.UUID
	var gotType string
	done := make(chan struct{})

	var claimCount int
	q := &stubQuerier{
		claimNextJobFn: func(_ context.Context, _ time.Time) (store.Job, error) {
			claimCount++
			if claimCount == 1 {
				return job, nil
			}
			return store.Job{}, pgx.ErrNoRows
		},
		updateJobStatusFn: func(_ context.Context, _ store.UpdateJobStatusParams) (store.Job, error) {
			close(done)
			return store.Job{}, nil
		},
	}
	exec := &stubExecutor{
		executeJobFn: func(_ context.Context, id uuid.UUID, jobType string, _ json.RawMessage) error {
			gotID, gotType = id, jobType
			return nil
		},
	}
	runWorkerUntilDone(t, q, exec, done)

	if gotID != job.ID {
		t.Errorf("expected job id %s, got %s", job.ID, gotID)
	}
	if gotType != "code.run" {
		t.Errorf("expected job type code.run, got %s", gotType)
	}
}

func TestWorker_ShutdownRequeuesInFlightJob(t *testing.T) {
	// The executor is mid-run when the worker is cancelled. Start must not
	// return before the job is written back, and the write must not reuse the
	// cancelled context.
	job := makeJob(1, 3)
	started := make(chan struct{})
	var captured store.UpdateJobStatusParams
	var writeCtxErr error
	var updates int

	var claimCount int
	q := &stubQuerier{
		claimNextJobFn: func(_ context.Context, _ time.Time) (store.Job, error) {
			claimCount++
			if claimCount == 1 {
				return job, nil
			}
			return store.Job{}, pgx.ErrNoRows
		},
		updateJobStatusFn: func(ctx context.Context, arg store.UpdateJobStatusParams) (store.Job, error) {
			updates++
			captured = arg
			writeCtxErr = ctx.Err()
			return store.Job{}, nil
		},
	}
	exec := &stubExecutor{
		executeJobFn: func(ctx context.Context, _ uuid.UUID, _ string, _ json.RawMessage) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := worker.New(q, exec, 1, worker.WithInterval(10*time.Millisecond))
	stopped := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(stopped)
	}()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for the job to start")
	}
	cancel()
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	if updates != 1 {
		t.Fatalf("expected one status write before Start returned, got %d", updates)
	}
	if writeCtxErr != nil {
		t.Errorf("status write used a cancelled context: %v", writeCtxErr)
	}
	if captured.Status != "pending" {
		t.Errorf("expected interrupted job to be requeued as pending, got %s", captured.Status)
	}
	if captured.RunAt.After(time.Now()) {
		t.Error("interrupted job should be runnable immediately")
	}
	if !strings.Contains(captured.Error.String, "interrupted by shutdown") {
		t.Errorf("unexpected error text %q", captured.Error.String)
	}
}

func TestWorker_ClaimPassesStaleCutoff(t *testing.T) {
	got := make(chan time.Time, 1)
	q := &stubQuerier{
		claimNextJobFn: func(_ context.Context, staleBefore time.Time) (store.Job, error) {
			select {
			case got <- staleBefore:
			default:
			}
			return store.Job{}, pgx.ErrNoRows
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := worker.New(q, &stubExecutor{}, 1,
		worker.WithInterval(10*time.Millisecond),
		worker.WithStaleAfter(time.Minute))
	go w.Start(ctx)

	var staleBefore time.Time
	select {
	case staleBefore = <-got:
	case <-time.After(3 * time.Second):
		t.Fatal("worker never claimed")
	}
	want := time.Now().Add(-time.Minute)
	if d := want.Sub(staleBefore); d < 0 || d > 5*time.Second {
		t.Errorf("expected stale cutoff near %v, got %v", want, staleBefore)
	}
}

func TestPermanent(t *testing.T) {
	base := errors.New("boom")
	if worker.IsPermanent(base) {
		t.Error("plain error should not be permanent")
	}
	p := worker.Permanent(base)
	if !worker.IsPermanent(p) {
		t.Error("expected Permanent error to be detected")
	}
	if !errors.Is(p, base) {
		t.Error("Permanent should unwrap to the original error")
	}
	if worker.Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

// Compile-time check: stubQuerier satisfies store.Querier.
var _ store.Querier = (*stubQuerier)(nil)

// Compile-time check: stubExecutor satisfies worker.JobExecutor.
var _ worker.JobExecutor = (*stubExecutor)(nil)
