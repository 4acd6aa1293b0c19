package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/codetube/codetube/internal/code"
	"github.com/codetube/codetube/internal/metrics"
	"github.com/codetube/codetube/internal/store"
)

const codeRunJob = "code.run"

// runResponse is the body of a finished run. ErrorOutput is what a client
// forwards to a "fix this code" assistant when the run did not succeed.
type runResponse struct {
	JobID       *uuid.UUID   `json:"job_id,omitempty"`
	Result      *code.Result `json:"result"`
	Accepted    bool         `json:"accepted"`
	ErrorOutput string       `json:"error_output,omitempty"`
}

func newRunResponse(res *code.Result) runResponse {
	return runResponse{
		Result:      res,
		Accepted:    res.Accepted(),
		ErrorOutput: res.ErrorOutput(),
	}
}

// RunCode queues a code run job (async by default) or runs immediately with ?sync=true.
//
// Request body:
//
//	{
//	  "source_code": "print('hello')",
//	  "language_id": 71,         // Judge0 language ID (71 = Python 3)
//	  "stdin":       "optional"
//	}
//
// Async (default): returns 202 {"job_id": "...", "status": "queued"}.
// Sync (?sync=true): returns 200 with the execution result directly.
// After async completion, retrieve results via GET /code/executions/:job_id.
func (h *Handler) RunCode(c *gin.Context) {
	var body struct {
		SourceCode string `json:"source_code"`
		LanguageID int    `json:"language_id" binding:"required"`
		Stdin      string `json:"stdin"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(body.SourceCode) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_code is required"})
		return
	}

	if c.Query("sync") != "true" {
		payloadJSON, _ := json.Marshal(code.JobPayload{
			SourceCode: body.SourceCode,
			LanguageID: body.LanguageID,
			Stdin:      body.Stdin,
		})
		job, err := h.queries.CreateJob(c.Request.Context(), store.CreateJobParams{
			JobType:     codeRunJob,
			Payload:     payloadJSON,
			MaxAttempts: h.maxAttempts,
		})
		if err != nil {
			h.logger.Error("queue code run", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue job"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": "queued"})
		return
	}

	res, err := h.run(c.Request.Context(), "sync", code.Request{
		SourceCode: body.SourceCode,
		LanguageID: body.LanguageID,
		Stdin:      body.Stdin,
	})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newRunResponse(res))
}

// GetCodeExecution returns the stored output of a completed code.run job.
// Call this after GET /jobs/:id reports status "completed".
func (h *Handler) GetCodeExecution(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	exec, err := h.queries.GetCodeExecution(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "execution result not found"})
			return
		}
		h.logger.Error("get code execution", zap.Stringer("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load execution"})
		return
	}

	resp := newRunResponse(resultFromExecution(exec))
	resp.JobID = &exec.JobID
	c.JSON(http.StatusOK, resp)
}

// ListLanguages returns the runtimes accepted by the judge.
func (h *Handler) ListLanguages(c *gin.Context) {
	langs, err := h.judge.Languages(c.Request.Context())
	if err != nil {
		h.logger.Warn("list languages", zap.Error(err))
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, langs)
}

// run executes req and records the outcome. mode labels the caller in metrics.
func (h *Handler) run(ctx context.Context, mode string, req code.Request) (*code.Result, error) {
	start := time.Now()
	res, err := h.judge.Run(ctx, req)
	elapsed := time.Since(start)

	outcome := runOutcome(res, err)
	metrics.ObserveRun(mode, outcome, elapsed)

	fields := []zap.Field{
		zap.String("mode", mode),
		zap.Int("language_id", req.LanguageID),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		h.logger.Warn("code run failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	h.logger.Info("code run finished", append(fields,
		zap.String("token", string(res.Token)),
		zap.Int("status", res.Status.ID))...)
	return res, nil
}

func runOutcome(res *code.Result, err error) string {
	switch {
	case err == nil && res.Accepted():
		return metrics.OutcomeAccepted
	case err == nil:
		return metrics.OutcomeProgramFailed
	case errors.Is(err, code.ErrNotConfigured):
		return metrics.OutcomeNotConfigured
	case errors.Is(err, code.ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeError
	}
}

// errorStatus maps a client failure to an HTTP status. Program failures never
// reach here; they are successful runs.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, code.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, code.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusBadGateway
	}
}
