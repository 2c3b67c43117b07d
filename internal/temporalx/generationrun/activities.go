package generationrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/cyclecoach-backend/internal/jobs/runtime"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
	"github.com/yungbote/cyclecoach-backend/internal/services"
)

type Activities struct {
	Log      *logger.Logger
	Queue    services.GenerationQueue
	Registry *runtime.Registry

	// HeartbeatEvery defaults to 10s.
	HeartbeatEvery time.Duration
}

// Run executes the job through the handler registry. Handler failures are
// recorded on the job row and reported through the result, not as activity
// errors.
func (a *Activities) Run(ctx context.Context, requestID string) (RunResult, error) {
	res := RunResult{RequestID: strings.TrimSpace(requestID)}
	if a == nil || a.Queue == nil || a.Registry == nil {
		return res, fmt.Errorf("generationrun: activity not configured")
	}
	id, err := uuid.Parse(res.RequestID)
	if err != nil || id == uuid.Nil {
		return res, temporal.NewNonRetryableApplicationError("invalid request_id", "InvalidRequestID", err)
	}

	job, err := a.Queue.Get(ctx, id)
	if err != nil {
		return res, err
	}
	if job == nil {
		return res, temporal.NewNonRetryableApplicationError("generation job not found", "NotFound", nil)
	}
	if job.IsTerminal() {
		return fill(res, job.Status, job.Phase, job.FailureKind), nil
	}

	stop := a.startHeartbeat(ctx, res.RequestID)
	defer stop()

	if err := runtime.Execute(ctx, a.Log, a.Registry, a.Queue, job); err != nil {
		a.Log.Warn("Generation activity handler error", "request_id", res.RequestID, "error", err)
	}

	final, err := a.Queue.Get(context.WithoutCancel(ctx), id)
	if err != nil || final == nil {
		return res, fmt.Errorf("generationrun: reload job: %v", err)
	}
	return fill(res, final.Status, final.Phase, final.FailureKind), nil
}

func fill(res RunResult, status, phase, failureKind string) RunResult {
	res.Status = status
	res.Phase = phase
	res.FailureKind = failureKind
	return res
}

func (a *Activities) startHeartbeat(ctx context.Context, requestID string) func() {
	every := a.HeartbeatEvery
	if every <= 0 {
		every = 10 * time.Second
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx, requestID)
			}
		}
	}()
	return func() { close(done) }
}
