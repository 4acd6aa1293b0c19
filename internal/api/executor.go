package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/codetube/codetube/internal/code"
	"github.com/codetube/codetube/internal/store"
	"github.com/codetube/codetube/internal/worker"
)

// ExecuteJob dispatches a job to the appropriate handler by type.
// It implements worker.JobExecutor.
func (h *Handler) ExecuteJob(ctx context.Context, jobID uuid.UUID, jobType string, payload json.RawMessage) error {
	switch jobType {
	case codeRunJob:
		return h.executeCodeJob(ctx, jobID, payload)
	default:
		return worker.Permanent(fmt.Errorf("unknown job type: %s", jobType))
	}
}

func (h *Handler) executeCodeJob(ctx context.Context, jobID uuid.UUID, raw json.RawMessage) error {
	var p code.JobPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return worker.Permanent(fmt.Errorf("invalid code job payload: %w", err))
	}

	res, err := h.run(ctx, "job", code.Request{
		SourceCode: p.SourceCode,
		LanguageID: p.LanguageID,
		Stdin:      p.Stdin,
	})
	if err != nil {
		if !code.Retryable(err) {
			return worker.Permanent(err)
		}
		return err
	}

	if _, err := h.queries.InsertCodeExecution(ctx, executionParams(jobID, p.LanguageID, res)); err != nil {
		return fmt.Errorf("store execution result: %w", err)
	}
	return nil
}

func executionParams(jobID uuid.UUID, languageID int, res *code.Result) store.InsertCodeExecutionParams {
	return store.InsertCodeExecutionParams{
		JobID:             jobID,
		Token:             string(res.Token),
		LanguageID:        int32(languageID),
		Stdout:            text(res.Stdout),
		Stderr:            text(res.Stderr),
		CompileOutput:     text(res.CompileOutput),
		Message:           text(res.Message),
		StatusID:          int32(res.Status.ID),
		StatusDescription: res.Status.Description,
		Time:              text(res.Time),
		Memory:            int4(res.Memory),
		ExitCode:          int4(res.ExitCode),
	}
}

func resultFromExecution(e store.CodeExecution) *code.Result {
	return &code.Result{
		Token:         code.Token(e.Token),
		Stdout:        textPtr(e.Stdout),
		Stderr:        textPtr(e.Stderr),
		CompileOutput: textPtr(e.CompileOutput),
		Message:       textPtr(e.Message),
		Status:        code.Status{ID: int(e.StatusID), Description: e.StatusDescription},
		Time:          textPtr(e.Time),
		Memory:        int4Ptr(e.Memory),
		ExitCode:      int4Ptr(e.ExitCode),
	}
}

func text(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func int4(n *int) pgtype.Int4 {
	if n == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*n), Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func int4Ptr(n pgtype.Int4) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}
