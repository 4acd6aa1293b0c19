package codetube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// CodeService runs code and fetches stored results.
type CodeService struct {
	c *Client
}

// RunOptions controls how a run is executed.
type RunOptions struct {
	// Sync runs the code inline and returns the result instead of a job ID.
	Sync bool
}

// Run queues (or synchronously runs) source code.
// A program that fails to compile or crashes is still a successful call: check
// RunResponse.Accepted and ErrorOutput.
func (s *CodeService) Run(ctx context.Context, req RunRequest, opts *RunOptions) (*RunResponse, error) {
	query := map[string]string{}
	if opts != nil && opts.Sync {
		query["sync"] = "true"
	}
	// Async returns 202, sync returns 200
	return doRequestWithQuery[RunResponse](ctx, s.c, http.MethodPost, "/code/run", query, req,
		http.StatusAccepted, http.StatusOK)
}

// GetExecution returns the stored result of a completed run job.
func (s *CodeService) GetExecution(ctx context.Context, jobID string) (*Execution, error) {
	path := fmt.Sprintf("/code/executions/%s", url.PathEscape(jobID))
	return doRequest[Execution](ctx, s.c, http.MethodGet, path, nil, http.StatusOK)
}

// Languages lists the runtimes the server's judge accepts.
func (s *CodeService) Languages(ctx context.Context) ([]Language, error) {
	langs, err := doRequest[[]Language](ctx, s.c, http.MethodGet, "/languages", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return *langs, nil
}

// Wait polls the job every interval until it completes, then returns the
// stored execution. A job that ends as failed yields a *JobFailedError.
func (s *CodeService) Wait(ctx context.Context, jobID string, interval time.Duration) (*Execution, error) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		job, err := s.c.Jobs.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch job.Status {
		case JobStatusCompleted:
			return s.GetExecution(ctx, jobID)
		case JobStatusFailed:
			msg := ""
			if job.Error != nil {
				msg = *job.Error
			}
			return nil, &JobFailedError{JobID: jobID, Message: msg}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
