package worker

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos"
	"github.com/yungbote/cyclecoach-backend/internal/jobs/runtime"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
	"github.com/yungbote/cyclecoach-backend/internal/services"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
}

// Worker polls for pending generation jobs and runs them in-process. It is the
// default executor when Temporal is not configured.
type Worker struct {
	log      *logger.Logger
	repo     repos.GenerationJobRepo
	queue    services.GenerationQueue
	registry *runtime.Registry
	cfg      Config
	wg       sync.WaitGroup

	// runCtx outlives the claim context so shutdown stops claiming without
	// aborting jobs already in flight. Abort cancels it.
	runCtx context.Context
	abort  context.CancelFunc
}

func NewWorker(baseLog *logger.Logger, repo repos.GenerationJobRepo, queue services.GenerationQueue, registry *runtime.Registry, cfg Config) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Worker{
		log:      baseLog.With("component", "GenerationWorker"),
		repo:     repo,
		queue:    queue,
		registry: registry,
		cfg:      cfg,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting generation worker pool", "concurrency", w.cfg.Concurrency, "poll_interval", w.cfg.PollInterval)
	w.runCtx, w.abort = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

// Wait blocks until every loop has observed ctx cancellation and finished the
// job it was running.
func (w *Worker) Wait() { w.wg.Wait() }

// Abort cancels the context of in-flight jobs. Used when the shutdown grace
// runs out.
func (w *Worker) Abort() {
	if w.abort != nil {
		w.abort()
	}
}

func (w *Worker) execContext(claimCtx context.Context) context.Context {
	if w.runCtx != nil {
		return w.runCtx
	}
	return claimCtx
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// Drain everything claimable before waiting for the next tick.
			for w.RunOnce(ctx, workerID) {
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// RunOnce claims and executes at most one job. It reports whether a job was
// claimed. ctx only governs the claim once the pool is started.
func (w *Worker) RunOnce(ctx context.Context, workerID int) bool {
	cutoff := time.Now().UTC().Add(-w.queue.StaleAfter())
	job, err := w.repo.ClaimNextPending(dbctx.Context{Ctx: ctx}, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn("ClaimNextPending failed", "worker_id", workerID, "error", err)
		}
		return false
	}
	if job == nil {
		return false
	}

	w.log.Debug("Claimed generation job", "worker_id", workerID, "request_id", job.RequestID, "kind", job.Kind)
	if err := runtime.Execute(w.execContext(ctx), w.log, w.registry, w.queue, job); err != nil {
		w.log.Warn("Generation job ended with error",
			"worker_id", workerID,
			"request_id", job.RequestID,
			"kind", job.Kind,
			"error", err,
		)
	}
	return true
}
