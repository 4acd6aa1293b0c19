package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/codetube/codetube/internal/code"
	"github.com/codetube/codetube/internal/store"
)

// Judge runs code and lists the languages it accepts.
type Judge interface {
	code.Runner
	code.LanguageLister
}

type Handler struct {
	queries     store.Querier
	judge       Judge
	logger      *zap.Logger
	maxAttempts int32
}

// NewHandler wires the API to its store and judge. maxAttempts bounds how often
// a queued run is retried after a retryable failure.
func NewHandler(queries store.Querier, judge Judge, logger *zap.Logger, maxAttempts int) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Handler{
		queries:     queries,
		judge:       judge,
		logger:      logger,
		maxAttempts: int32(maxAttempts),
	}
}

// Health reports that the server is up.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type jobResponse struct {
	ID          uuid.UUID  `json:"id"`
	JobType     string     `json:"job_type"`
	Status      string     `json:"status"`
	Attempt     int32      `json:"attempt"`
	MaxAttempts int32      `json:"max_attempts"`
	Error       *string    `json:"error"`
	RunAt       time.Time  `json:"run_at"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// GetJob returns the status of a queued job.
func (h *Handler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.queries.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.logger.Error("get job", zap.Stringer("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}

	resp := jobResponse{
		ID:          job.ID,
		JobType:     job.JobType,
		Status:      job.Status,
		Attempt:     job.Attempt,
		MaxAttempts: job.MaxAttempts,
		RunAt:       job.RunAt,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Error.Valid {
		resp.Error = &job.Error.String
	}
	c.JSON(http.StatusOK, resp)
}
