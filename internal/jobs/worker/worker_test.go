package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos"
	"github.com/yungbote/cyclecoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/jobs/runtime"
	"github.com/yungbote/cyclecoach-backend/internal/services"
)

type funcHandler struct {
	kind string
	run  func(jc *runtime.Context) error
}

func (h funcHandler) Type() string                   { return h.kind }
func (h funcHandler) Run(jc *runtime.Context) error { return h.run(jc) }

func setup(t *testing.T, handlers ...runtime.Handler) (*Worker, services.GenerationQueue, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewGenerationJobRepo(db, log)
	q := services.NewGenerationQueue(db, log, repo, nil, nil, 0)
	reg := runtime.NewRegistry()
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return NewWorker(log, repo, q, reg, Config{Concurrency: 1, PollInterval: 10 * time.Millisecond}), q, db
}

func start(t *testing.T, q services.GenerationQueue, kind string) *types.GenerationJob {
	t.Helper()
	job, err := q.Start(context.Background(), services.StartRequest{UserID: uuid.New(), RequestID: uuid.New(), Kind: kind})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return job
}

func TestRunOnceExecutesClaimedJob(t *testing.T) {
	artifact := uuid.New()
	w, q, _ := setup(t, funcHandler{kind: types.GenerationKindSplit, run: func(jc *runtime.Context) error {
		if err := jc.Progress("drafting", 50); err != nil {
			return err
		}
		return jc.Succeed(artifact)
	}})
	ctx := context.Background()
	job := start(t, q, types.GenerationKindSplit)

	if !w.RunOnce(ctx, 1) {
		t.Fatalf("expected a job to be claimed")
	}
	got, _ := q.Get(ctx, job.RequestID)
	if got.Status != types.GenerationStatusCompleted || got.ProducedArtifactID == nil || *got.ProducedArtifactID != artifact {
		t.Fatalf("job = %+v", got)
	}
	if w.RunOnce(ctx, 1) {
		t.Fatalf("a job must only be claimed once")
	}
}

func TestRunOnceRecoversPanics(t *testing.T) {
	w, q, _ := setup(t, funcHandler{kind: types.GenerationKindSplit, run: func(jc *runtime.Context) error {
		panic("nil map write")
	}})
	ctx := context.Background()
	job := start(t, q, types.GenerationKindSplit)

	if !w.RunOnce(ctx, 1) {
		t.Fatalf("expected a job to be claimed")
	}
	got, _ := q.Get(ctx, job.RequestID)
	if got.Status != types.GenerationStatusFailed || got.FailureKind != types.FailureKindWorkerError {
		t.Fatalf("job = %+v", got)
	}
}

func TestRunOnceFailsJobsWithoutHandler(t *testing.T) {
	w, q, _ := setup(t)
	ctx := context.Background()
	job := start(t, q, types.GenerationKindWorkout)

	w.RunOnce(ctx, 1)
	got, _ := q.Get(ctx, job.RequestID)
	if got.Status != types.GenerationStatusFailed {
		t.Fatalf("job = %+v", got)
	}
}

func TestRunOnceRecordsHandlerError(t *testing.T) {
	w, q, _ := setup(t, funcHandler{kind: types.GenerationKindSplit, run: func(jc *runtime.Context) error {
		return errors.New("disk full")
	}})
	ctx := context.Background()
	job := start(t, q, types.GenerationKindSplit)

	w.RunOnce(ctx, 1)
	got, _ := q.Get(ctx, job.RequestID)
	if got.Status != types.GenerationStatusFailed || got.ErrorMessage != "disk full" {
		t.Fatalf("job = %+v", got)
	}
}

func TestStaleJobsAreNotClaimed(t *testing.T) {
	w, q, db := setup(t)
	ctx := context.Background()
	stale := testutil.SeedGenerationJob(t, ctx, db, uuid.New(), types.GenerationStatusPending, time.Now().UTC().Add(-time.Hour))

	if w.RunOnce(ctx, 1) {
		t.Fatalf("stale job %s should not be claimed", stale.RequestID)
	}
	got, _ := q.Get(ctx, stale.RequestID)
	if got.Status != types.GenerationStatusPending || got.ClaimedAt != nil {
		t.Fatalf("stale job was touched: %+v", got)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	done := make(chan struct{}, 1)
	w, q, _ := setup(t, funcHandler{kind: types.GenerationKindSplit, run: func(jc *runtime.Context) error {
		done <- struct{}{}
		return jc.Fail(types.FailureKindWorkerError, errors.New("stop"))
	}})
	ctx, cancel := context.WithCancel(context.Background())
	start(t, q, types.GenerationKindSplit)

	w.Start(ctx)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker never picked up the job")
	}
	cancel()
	w.Wait()
}

func TestCancelLetsInFlightJobFinish(t *testing.T) {
	artifact := uuid.New()
	claimed := make(chan struct{})
	release := make(chan struct{})
	w, q, _ := setup(t, funcHandler{kind: types.GenerationKindSplit, run: func(jc *runtime.Context) error {
		close(claimed)
		<-release
		if err := jc.Ctx.Err(); err != nil {
			return err
		}
		return jc.Succeed(artifact)
	}})
	ctx, cancel := context.WithCancel(context.Background())
	job := start(t, q, types.GenerationKindSplit)

	w.Start(ctx)
	select {
	case <-claimed:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker never picked up the job")
	}
	cancel()
	close(release)
	w.Wait()

	got, _ := q.Get(context.Background(), job.RequestID)
	if got.Status != types.GenerationStatusCompleted {
		t.Fatalf("in-flight job should complete after cancel, got %+v", got)
	}
}

func TestAbortCancelsInFlightJob(t *testing.T) {
	claimed := make(chan struct{})
	w, q, _ := setup(t, funcHandler{kind: types.GenerationKindSplit, run: func(jc *runtime.Context) error {
		close(claimed)
		<-jc.Ctx.Done()
		return jc.Ctx.Err()
	}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	job := start(t, q, types.GenerationKindSplit)

	w.Start(ctx)
	select {
	case <-claimed:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker never picked up the job")
	}
	cancel()
	w.Abort()
	w.Wait()

	got, _ := q.Get(context.Background(), job.RequestID)
	if got.Status != types.GenerationStatusFailed || got.FailureKind != types.FailureKindWorkerError {
		t.Fatalf("aborted job = %+v, want failed worker_error", got)
	}
}
