package code

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned before any network call when no API key is set.
	ErrNotConfigured = errors.New("judge0 api key is not configured")
	// ErrSubmission means the submit call failed or returned no token.
	ErrSubmission = errors.New("submission failed")
	// ErrCommunication means a status check failed after a successful submit.
	ErrCommunication = errors.New("judge0 request failed")
	// ErrTimeout means the submission did not reach a terminal status within
	// the configured poll budget.
	ErrTimeout = errors.New("execution timed out")
)

// Error describes a failed call to the judging service. Kind is one of the
// package sentinels; Message is the service's own error payload when one was
// returned.
type Error struct {
	Kind       error
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("judge0 %s: %v: HTTP %d: %s", e.Op, e.Kind, e.StatusCode, msg)
	}
	if msg == "" {
		return fmt.Sprintf("judge0 %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("judge0 %s: %v: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports whether running the same request again could succeed.
// Configuration errors, timeouts and 4xx rejections are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrTimeout) {
		return false
	}
	var e *Error
	if errors.As(err, &e) && e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 429 {
		return false
	}
	return true
}
