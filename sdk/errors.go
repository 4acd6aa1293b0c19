package codetube

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned when the CodeTube API responds with a non-success status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("codetube: HTTP %d: %s", e.StatusCode, e.Message)
}

// JobFailedError is returned by CodeService.Wait when the job ended as failed.
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("codetube: job %s failed: %s", e.JobID, e.Message)
}

// IsNotConfigured reports whether the server has no Judge0 key configured.
func IsNotConfigured(err error) bool {
	return hasStatus(err, http.StatusServiceUnavailable)
}

// IsTimeout reports whether the run did not finish within the server's poll budget.
func IsTimeout(err error) bool {
	return hasStatus(err, http.StatusGatewayTimeout)
}

func hasStatus(err error, code int) bool {
	var e *APIError
	return errors.As(err, &e) && e.StatusCode == code
}
