package generationrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
)

// Workflow executes one generation job. The workflow ID is the job's request_id,
// so a request can never be running twice.
func Workflow(ctx workflow.Context, requestID string) error {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		requestID = strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	}
	if requestID == "" {
		return fmt.Errorf("generationrun: missing request_id")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: types.DefaultStaleAfter,
		HeartbeatTimeout:    30 * time.Second,
		// A retry would race the stale cutoff; failures are recorded on the job instead.
		RetryPolicy: &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out RunResult
	if err := workflow.ExecuteActivity(ctx, ActivityRun, requestID).Get(ctx, &out); err != nil {
		return err
	}
	if out.Status == types.GenerationStatusFailed {
		return fmt.Errorf("generation failed (failure_kind=%s phase=%s)", out.FailureKind, out.Phase)
	}
	workflow.GetLogger(ctx).Info("Generation finished", "request_id", requestID, "status", out.Status)
	return nil
}
