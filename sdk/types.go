package codetube

import "time"

// HealthResponse is returned by the /health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// --- Code ---

// RunRequest is the body of POST /code/run.
type RunRequest struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin,omitempty"`
}

// Status is the Judge0 status of a finished run.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is the Judge0 outcome of a run. Pointer fields are nil when Judge0
// did not report them.
type Result struct {
	Token         string  `json:"token"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Status        Status  `json:"status"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
	ExitCode      *int    `json:"exit_code"`
}

// RunResponse is returned by POST /code/run.
// When async (default), JobID and QueueStatus are populated.
// When sync (?sync=true), Result, Accepted and ErrorOutput are populated.
type RunResponse struct {
	JobID       string  `json:"job_id,omitempty"`
	QueueStatus string  `json:"status,omitempty"`
	Result      *Result `json:"result,omitempty"`
	Accepted    bool    `json:"accepted"`
	ErrorOutput string  `json:"error_output,omitempty"`
}

// Execution is the stored result of a queued run, returned by
// GET /code/executions/:job_id.
type Execution struct {
	JobID       string  `json:"job_id"`
	Result      *Result `json:"result"`
	Accepted    bool    `json:"accepted"`
	ErrorOutput string  `json:"error_output,omitempty"`
}

// Language is one runtime accepted by the judge.
type Language struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// --- Jobs ---

// Job represents an async background job.
type Job struct {
	ID          string     `json:"id"`
	JobType     string     `json:"job_type"`
	Status      string     `json:"status"`
	Attempt     int        `json:"attempt"`
	MaxAttempts int        `json:"max_attempts"`
	Error       *string    `json:"error,omitempty"`
	RunAt       time.Time  `json:"run_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// JobStatus constants for Job.Status.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)
