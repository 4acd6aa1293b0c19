package code

import (
	"context"
	"strings"
)

// Judge0 status ids. Anything above StatusProcessing is terminal.
const (
	StatusInQueue             = 1
	StatusProcessing          = 2
	StatusAccepted            = 3
	StatusWrongAnswer         = 4
	StatusTimeLimitExceeded   = 5
	StatusCompilationError    = 6
	StatusRuntimeErrorSIGSEGV = 7
	StatusRuntimeErrorSIGXFSZ = 8
	StatusRuntimeErrorSIGFPE  = 9
	StatusRuntimeErrorSIGABRT = 10
	StatusRuntimeErrorNZEC    = 11
	StatusRuntimeErrorOther   = 12
	StatusInternalError       = 13
	StatusExecFormatError     = 14
)

// Request is a single piece of source code to execute.
type Request struct {
	SourceCode string
	LanguageID int
	Stdin      string
}

// Token identifies a pending submission on the judging service.
type Token string

// Status is the lifecycle stage reported by the judging service.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Terminal reports whether the service will no longer change the result.
func (s Status) Terminal() bool {
	return s.ID > StatusProcessing
}

// Result is the final outcome of a submission. Pointer fields are nil when the
// service did not report them.
type Result struct {
	Token         Token   `json:"token"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Status        Status  `json:"status"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
	ExitCode      *int    `json:"exit_code"`
}

// Accepted reports whether the program ran to completion without error.
func (r *Result) Accepted() bool {
	return r.Status.ID == StatusAccepted
}

// ErrorOutput joins compiler output and stderr, in that order. It is empty when
// the program produced neither.
func (r *Result) ErrorOutput() string {
	var parts []string
	for _, s := range []*string{r.CompileOutput, r.Stderr} {
		if s != nil && strings.TrimSpace(*s) != "" {
			parts = append(parts, strings.TrimRight(*s, "\n"))
		}
	}
	return strings.Join(parts, "\n")
}

// PollState is the outcome of one status check: either Pending or Terminal.
type PollState interface {
	pollState()
}

// Pending means the submission is queued or still processing. No result field
// is meaningful yet.
type Pending struct {
	Status Status
}

// Terminal carries the final result of a submission.
type Terminal struct {
	Result Result
}

func (Pending) pollState()  {}
func (Terminal) pollState() {}

// Language is one runtime offered by the judging service.
type Language struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// JobPayload is the serialized form of a code.run job stored in the jobs table.
type JobPayload struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin,omitempty"`
}

// Runner executes source code and waits for a terminal result.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// LanguageLister lists the runtimes a Runner accepts.
type LanguageLister interface {
	Languages(ctx context.Context) ([]Language, error)
}
