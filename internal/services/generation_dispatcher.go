package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

// GenerationDispatcher hands a freshly created job to whatever will execute it.
type GenerationDispatcher interface {
	Dispatch(ctx context.Context, job *types.GenerationJob) error
}

type pollingDispatcher struct{}

// NewPollingDispatcher leaves the job pending for the in-process worker pool,
// which claims it on its next tick.
func NewPollingDispatcher() GenerationDispatcher { return pollingDispatcher{} }

func (pollingDispatcher) Dispatch(ctx context.Context, job *types.GenerationJob) error { return nil }

// GenerationWorkflowName is registered by the Temporal worker. Kept as a literal
// here so services does not import the workflow package.
const GenerationWorkflowName = "generation_run"

type temporalDispatcher struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewTemporalDispatcher(baseLog *logger.Logger, tc temporalsdkclient.Client, taskQueue string) (GenerationDispatcher, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	tq := strings.TrimSpace(taskQueue)
	if tq == "" {
		tq = "cyclecoach"
	}
	return &temporalDispatcher{
		log:       baseLog.With("service", "TemporalDispatcher"),
		tc:        tc,
		taskQueue: tq,
	}, nil
}

// Dispatch starts one workflow per request_id. A duplicate start for the same
// request is rejected by Temporal and treated as success.
func (d *temporalDispatcher) Dispatch(ctx context.Context, job *types.GenerationJob) error {
	if job == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    job.RequestID.String(),
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowRunTimeout:    types.DefaultStaleAfter,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 1.0,
			MaximumInterval:    5 * time.Second,
			MaximumAttempts:    1,
		},
	}
	_, err := d.tc.ExecuteWorkflow(ctx, opts, GenerationWorkflowName, job.RequestID.String())
	if err == nil {
		d.log.Debug("Generation workflow started", "request_id", job.RequestID, "task_queue", d.taskQueue)
		return nil
	}
	var already *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &already) {
		return nil
	}
	return fmt.Errorf("start temporal workflow: %w", err)
}
