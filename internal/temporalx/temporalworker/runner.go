package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/cyclecoach-backend/internal/jobs/runtime"
	"github.com/yungbote/cyclecoach-backend/internal/platform/envutil"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
	"github.com/yungbote/cyclecoach-backend/internal/platform/shutdown"
	"github.com/yungbote/cyclecoach-backend/internal/services"
	"github.com/yungbote/cyclecoach-backend/internal/temporalx"
	"github.com/yungbote/cyclecoach-backend/internal/temporalx/generationrun"
)

type Runner struct {
	log *logger.Logger
	cfg temporalx.Config

	tc       temporalsdkclient.Client
	queue    services.GenerationQueue
	registry *runtime.Registry
}

func NewRunner(
	log *logger.Logger,
	cfg temporalx.Config,
	tc temporalsdkclient.Client,
	queue services.GenerationQueue,
	registry *runtime.Registry,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if queue == nil || registry == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:      log.With("component", "TemporalWorker"),
		cfg:      cfg,
		tc:       tc,
		queue:    queue,
		registry: registry,
	}, nil
}

// Start polls the task queue until ctx is canceled. Start itself returns once
// the worker is up, retrying while the namespace or frontend is unavailable.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	maxWait := envutil.Duration("TEMPORAL_WORKER_START_MAX_WAIT", time.Minute)
	backoff := envutil.Duration("TEMPORAL_WORKER_START_BACKOFF", 250*time.Millisecond)
	backoffMax := envutil.Duration("TEMPORAL_WORKER_START_BACKOFF_MAX", 5*time.Second)
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false) {
			if err := temporalx.EnsureNamespace(ctx, r.log, r.cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}

		if maxWait <= 0 || time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", r.cfg.TaskQueue, "attempt", attempt, "error", startErr)
		time.Sleep(temporalx.ClampBackoff(backoff, backoffMax, attempt))
	}
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
		WorkerStopTimeout:                      shutdown.Grace(),
	})

	acts := &generationrun.Activities{
		Log:      r.log,
		Queue:    r.queue,
		Registry: r.registry,
	}
	w.RegisterWorkflowWithOptions(generationrun.Workflow, workflow.RegisterOptions{Name: generationrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: generationrun.ActivityRun})
	return w
}
