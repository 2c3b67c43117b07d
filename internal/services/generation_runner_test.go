package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos"
	"github.com/yungbote/cyclecoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/modules/training/muscles"
	apperr "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
)

type runnerFixture struct {
	db       *gorm.DB
	queue    GenerationQueue
	runner   GenerationRunner
	profiles repos.UserProfileRepo
	plans    repos.CyclePlanRepo
	workouts repos.WorkoutRepo
	verifier CompletionVerifier
}

type erroringGenerator struct {
	Generator
	err error
}

func (g erroringGenerator) GeneratePlan(ctx context.Context, req GenerationRequest, onPhase PhaseFunc) (*PlanDocument, error) {
	onPhase("drafting", 20)
	return nil, g.err
}

// cancelingGenerator simulates the user canceling while the model is busy.
type cancelingGenerator struct {
	Generator
	queue  GenerationQueue
	userID uuid.UUID
	reqID  uuid.UUID
}

func (g cancelingGenerator) GeneratePlan(ctx context.Context, req GenerationRequest, onPhase PhaseFunc) (*PlanDocument, error) {
	if _, err := g.queue.Cancel(ctx, g.reqID, g.userID); err != nil {
		return nil, err
	}
	return g.Generator.GeneratePlan(ctx, req, onPhase)
}

func newRunnerFixture(t *testing.T, gen func(q GenerationQueue) Generator) *runnerFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	jobs := repos.NewGenerationJobRepo(db, log)
	profiles := repos.NewUserProfileRepo(db, log)
	plans := repos.NewCyclePlanRepo(db, log)
	workouts := repos.NewWorkoutRepo(db, log)
	q := NewGenerationQueue(db, log, jobs, nil, nil, 0)

	g := NewTemplateGenerator(muscles.Default(log))
	if gen != nil {
		g = gen(q)
	}
	reader := NewProfileActivePlanReader(db, profiles)
	runner, err := NewGenerationRunner(GenerationRunnerDeps{
		DB:        db,
		Log:       log,
		Queue:     q,
		Plans:     plans,
		Workouts:  workouts,
		Profiles:  profiles,
		Generator: g,
		Cache:     NewUncachedActivePlan(reader),
	})
	if err != nil {
		t.Fatalf("NewGenerationRunner: %v", err)
	}
	return &runnerFixture{
		db:       db,
		queue:    q,
		runner:   runner,
		profiles: profiles,
		plans:    plans,
		workouts: workouts,
		verifier: NewCompletionVerifier(log, reader),
	}
}

func (f *runnerFixture) start(t *testing.T, userID uuid.UUID, kind string, input string) *types.GenerationJob {
	t.Helper()
	job, err := f.queue.Start(context.Background(), StartRequest{
		UserID:    userID,
		RequestID: uuid.New(),
		Kind:      kind,
		Input:     datatypes.JSON([]byte(input)),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return job
}

func TestRunnerGeneratesAndActivatesPlan(t *testing.T) {
	f := newRunnerFixture(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	job := f.start(t, userID, types.GenerationKindSplit, `{"cycle_days":4}`)

	if err := f.runner.Run(ctx, job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	done, _ := f.queue.Get(ctx, job.RequestID)
	if done.Status != types.GenerationStatusCompleted || done.ProducedArtifactID == nil {
		t.Fatalf("job after run = %+v", done)
	}
	planID := *done.ProducedArtifactID

	if !f.verifier.AwaitVisibility(ctx, userID, planID, 3, 10*time.Millisecond) {
		t.Fatalf("plan %s should be visible as the active plan", planID)
	}
	profile, _ := f.profiles.Get(dbctx.Context{Ctx: ctx}, userID)
	if profile == nil || profile.CurrentCycleDay != 1 {
		t.Fatalf("profile = %+v, want cycle restarted at day 1", profile)
	}

	plan, err := f.plans.GetByID(dbctx.Context{Ctx: ctx}, planID)
	if err != nil || plan == nil || plan.CycleDays != 4 || plan.GenerationJobID == nil || *plan.GenerationJobID != job.ID {
		t.Fatalf("plan = %+v err=%v", plan, err)
	}
	sessions, _ := f.plans.ListSessions(dbctx.Context{Ctx: ctx}, planID)
	if len(sessions) != 3 {
		t.Fatalf("sessions = %d, want 3 training days", len(sessions))
	}
	push := sessions[0].TargetVolume.Data()
	// Bench 4 + incline 3 primary; pushdown and overhead press add none.
	if push[muscles.Chest] != 4 || push[muscles.ChestUpper] != 3 {
		t.Fatalf("push targets = %v", push)
	}
}

func TestRunnerGeneratesWorkoutForCurrentDay(t *testing.T) {
	f := newRunnerFixture(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	plan := testutil.SeedPlan(t, ctx, f.db, userID, 4, map[int]types.Volume{2: {"back": 8}})
	testutil.SeedProfile(t, ctx, f.db, userID, &plan.ID, 2)

	job := f.start(t, userID, types.GenerationKindWorkout, `{}`)
	if err := f.runner.Run(ctx, job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	done, _ := f.queue.Get(ctx, job.RequestID)
	if done.Status != types.GenerationStatusCompleted || done.ProducedArtifactID == nil {
		t.Fatalf("job after run = %+v", done)
	}
	w, err := f.workouts.GetByID(dbctx.Context{Ctx: ctx}, *done.ProducedArtifactID)
	if err != nil || w == nil || w.CycleDay != 2 || w.Status != types.WorkoutStatusReady || w.PlanID != plan.ID {
		t.Fatalf("workout = %+v err=%v", w, err)
	}

	rest := f.start(t, userID, types.GenerationKindWorkout, `{"cycle_day":3}`)
	if err := f.runner.Run(ctx, rest); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("rest day run: err = %v, want invalid argument", err)
	}
	failed, _ := f.queue.Get(ctx, rest.RequestID)
	if failed.Status != types.GenerationStatusFailed || failed.FailureKind != types.FailureKindWorkerError {
		t.Fatalf("rest day job = %+v", failed)
	}
}

func TestRunnerRecordsUpstreamFailure(t *testing.T) {
	f := newRunnerFixture(t, func(q GenerationQueue) Generator {
		return erroringGenerator{err: apperr.Upstream(errors.New("model overloaded"))}
	})
	ctx := context.Background()
	job := f.start(t, uuid.New(), types.GenerationKindSplit, `{}`)

	if err := f.runner.Run(ctx, job); err != nil {
		t.Fatalf("upstream failures are recorded, not returned: %v", err)
	}
	got, _ := f.queue.Get(ctx, job.RequestID)
	if got.Status != types.GenerationStatusFailed ||
		got.FailureKind != types.FailureKindUpstreamFailure ||
		got.ErrorMessage != "model overloaded" {
		t.Fatalf("job = %+v", got)
	}
	if got.Phase != "drafting" {
		t.Fatalf("phase callback not applied: %q", got.Phase)
	}
}

// interruptedGenerator stands in for a model call cut short by shutdown.
type interruptedGenerator struct {
	Generator
	abort context.CancelFunc
}

func (g interruptedGenerator) GeneratePlan(ctx context.Context, req GenerationRequest, onPhase PhaseFunc) (*PlanDocument, error) {
	g.abort()
	return nil, apperr.Upstream(ctx.Err())
}

func TestRunnerRecordsShutdownAsWorkerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newRunnerFixture(t, func(q GenerationQueue) Generator {
		return interruptedGenerator{abort: cancel}
	})
	job := f.start(t, uuid.New(), types.GenerationKindSplit, `{}`)

	if err := f.runner.Run(ctx, job); err == nil {
		t.Fatalf("interrupted run should return its cause")
	}
	got, _ := f.queue.Get(context.Background(), job.RequestID)
	if got.Status != types.GenerationStatusFailed ||
		got.FailureKind != types.FailureKindWorkerError ||
		got.ErrorMessage != types.InterruptedReason {
		t.Fatalf("job = %+v", got)
	}
}

func TestRunnerDiscardsResultOfCanceledJob(t *testing.T) {
	userID := uuid.New()
	var target *types.GenerationJob
	f := newRunnerFixture(t, func(q GenerationQueue) Generator {
		return &lateCancel{queue: q, userID: userID, job: &target}
	})
	ctx := context.Background()
	target = f.start(t, userID, types.GenerationKindSplit, `{}`)

	if err := f.runner.Run(ctx, target); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, _ := f.queue.Get(ctx, target.RequestID)
	if got.Status != types.GenerationStatusFailed || got.ErrorMessage != types.CancelReason {
		t.Fatalf("job = %+v", got)
	}
	profile, _ := f.profiles.Get(dbctx.Context{Ctx: ctx}, userID)
	if profile != nil {
		t.Fatalf("canceled generation must not activate a plan")
	}
}

// lateCancel cancels its own job from inside generation.
type lateCancel struct {
	queue  GenerationQueue
	userID uuid.UUID
	job    **types.GenerationJob
}

func (g *lateCancel) GeneratePlan(ctx context.Context, req GenerationRequest, onPhase PhaseFunc) (*PlanDocument, error) {
	inner := cancelingGenerator{
		Generator: NewTemplateGenerator(muscles.Default(nil)),
		queue:     g.queue,
		userID:    g.userID,
		reqID:     (*g.job).RequestID,
	}
	return inner.GeneratePlan(ctx, req, onPhase)
}

func (g *lateCancel) GenerateWorkout(ctx context.Context, req GenerationRequest, onPhase PhaseFunc) (*WorkoutDocument, error) {
	return nil, errors.New("unused")
}
