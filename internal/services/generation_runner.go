package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos"
	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	apperr "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
	"github.com/yungbote/cyclecoach-backend/internal/platform/gcp"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

// GenerationRunner executes one claimed generation job end to end. It records
// every outcome on the job row; the returned error is for the caller's logs.
type GenerationRunner interface {
	Run(ctx context.Context, job *types.GenerationJob) error
}

type generationRunner struct {
	db        *gorm.DB
	log       *logger.Logger
	queue     GenerationQueue
	plans     repos.CyclePlanRepo
	workouts  repos.WorkoutRepo
	profiles  repos.UserProfileRepo
	generator Generator
	cache     ActivePlanCache
	archive   gcp.PlanArchive
}

type GenerationRunnerDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Queue     GenerationQueue
	Plans     repos.CyclePlanRepo
	Workouts  repos.WorkoutRepo
	Profiles  repos.UserProfileRepo
	Generator Generator
	Cache     ActivePlanCache
	// Archive is optional.
	Archive gcp.PlanArchive
}

func NewGenerationRunner(deps GenerationRunnerDeps) (GenerationRunner, error) {
	if deps.DB == nil || deps.Log == nil || deps.Queue == nil || deps.Generator == nil {
		return nil, fmt.Errorf("generation runner missing deps")
	}
	if deps.Plans == nil || deps.Workouts == nil || deps.Profiles == nil {
		return nil, fmt.Errorf("generation runner missing repos")
	}
	return &generationRunner{
		db:        deps.DB,
		log:       deps.Log.With("service", "GenerationRunner"),
		queue:     deps.Queue,
		plans:     deps.Plans,
		workouts:  deps.Workouts,
		profiles:  deps.Profiles,
		generator: deps.Generator,
		cache:     deps.Cache,
		archive:   deps.Archive,
	}, nil
}

func (r *generationRunner) Run(ctx context.Context, job *types.GenerationJob) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}
	ctx, span := queueTracer.Start(ctx, "GenerationRunner.Run", trace.WithAttributes(
		attribute.String("generation.request_id", job.RequestID.String()),
		attribute.String("generation.kind", job.Kind),
	))
	defer span.End()

	log := r.log.With("request_id", job.RequestID, "kind", job.Kind)
	if err := r.queue.ReportProgress(ctx, job.RequestID, "preparing", 5); err != nil {
		return fmt.Errorf("mark job started: %w", err)
	}
	if !r.stillRunning(ctx, job.RequestID) {
		log.Info("Job ended before generation began")
		return nil
	}

	onPhase := func(phase string, pct int) {
		if err := r.queue.ReportProgress(ctx, job.RequestID, phase, pct); err != nil {
			log.Warn("Progress report failed", "phase", phase, "error", err)
		}
	}

	req := GenerationRequest{
		UserID:       job.UserID,
		Kind:         job.Kind,
		OwnerContext: job.OwnerContext,
		Input:        decodeInput(job.Input),
	}

	var (
		artifactID uuid.UUID
		err        error
	)
	switch job.Kind {
	case types.GenerationKindWorkout:
		artifactID, err = r.runWorkout(ctx, job, req, onPhase)
	default:
		artifactID, err = r.runPlan(ctx, job, req, onPhase)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return r.recordFailure(ctx, job, err)
	}
	if artifactID == uuid.Nil {
		return nil
	}

	if err := r.queue.Complete(ctx, job.RequestID, artifactID); err != nil {
		if errors.Is(err, apperr.ErrInvalidTransition) {
			// Canceled while persisting; the cancellation already won.
			log.Info("Completion lost to an earlier terminal write", "artifact_id", artifactID)
			return nil
		}
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (r *generationRunner) runPlan(ctx context.Context, job *types.GenerationJob, req GenerationRequest, onPhase PhaseFunc) (uuid.UUID, error) {
	doc, err := r.generator.GeneratePlan(ctx, req, onPhase)
	if err != nil {
		return uuid.Nil, err
	}
	if !r.stillRunning(ctx, job.RequestID) {
		r.log.Info("Discarding plan for ended job", "request_id", job.RequestID)
		return uuid.Nil, nil
	}
	onPhase("saving", 85)

	raw, err := json.Marshal(doc)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode plan document: %w", err)
	}
	jobID := job.ID
	plan := &types.CyclePlan{
		UserID:          job.UserID,
		GenerationJobID: &jobID,
		Name:            doc.Name,
		CycleDays:       doc.CycleDays,
		Document:        datatypes.JSON(raw),
	}
	sessions := make([]*types.CycleSession, 0, len(doc.Sessions))
	for _, s := range doc.Sessions {
		sessions = append(sessions, &types.CycleSession{
			Day:          s.Day,
			Name:         s.Name,
			TargetVolume: datatypes.NewJSONType(types.Volume(s.TargetVolume)),
			Exercises:    datatypes.NewJSONSlice(s.Exercises),
		})
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := r.plans.Create(dbc, plan, sessions); err != nil {
			return fmt.Errorf("create plan: %w", err)
		}
		if err := r.profiles.SetActivePlan(dbc, job.UserID, plan.ID); err != nil {
			return fmt.Errorf("activate plan: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	if r.cache != nil {
		if err := r.cache.Invalidate(ctx, job.UserID); err != nil {
			r.log.Warn("Active plan cache invalidation failed", "user_id", job.UserID, "error", err)
		}
	}
	r.archivePlan(ctx, job.UserID, plan.ID, raw)
	return plan.ID, nil
}

func (r *generationRunner) runWorkout(ctx context.Context, job *types.GenerationJob, req GenerationRequest, onPhase PhaseFunc) (uuid.UUID, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: r.db}
	profile, err := r.profiles.Get(dbc, job.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil || profile.ActivePlanID == nil {
		return uuid.Nil, fmt.Errorf("no active plan: %w", apperr.ErrInvalidArgument)
	}
	planID := *profile.ActivePlanID
	day := profile.CurrentCycleDay
	if v, ok := req.Input["cycle_day"].(float64); ok && v >= 1 {
		day = int(v)
	}

	sessions, err := r.plans.ListSessions(dbc, planID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load sessions: %w", err)
	}
	for _, s := range sessions {
		if s.Day == day {
			req.Session = s
			break
		}
	}
	if req.Session == nil {
		return uuid.Nil, fmt.Errorf("day %d is a rest day: %w", day, apperr.ErrInvalidArgument)
	}

	doc, err := r.generator.GenerateWorkout(ctx, req, onPhase)
	if err != nil {
		return uuid.Nil, err
	}
	if !r.stillRunning(ctx, job.RequestID) {
		r.log.Info("Discarding workout for ended job", "request_id", job.RequestID)
		return uuid.Nil, nil
	}
	onPhase("saving", 85)

	w := &types.Workout{
		UserID:    job.UserID,
		PlanID:    planID,
		CycleDay:  day,
		Name:      doc.Name,
		Status:    types.WorkoutStatusReady,
		Exercises: datatypes.NewJSONSlice(doc.Exercises),
	}
	if err := r.workouts.Create(dbc, w); err != nil {
		return uuid.Nil, fmt.Errorf("create workout: %w", err)
	}
	return w.ID, nil
}

// stillRunning is the best-effort cancellation check between expensive steps.
func (r *generationRunner) stillRunning(ctx context.Context, requestID uuid.UUID) bool {
	job, err := r.queue.Get(ctx, requestID)
	if err != nil {
		r.log.Warn("Job status check failed", "request_id", requestID, "error", err)
		return true
	}
	return job != nil && !job.IsTerminal()
}

func (r *generationRunner) recordFailure(ctx context.Context, job *types.GenerationJob, cause error) error {
	kind := types.FailureKindWorkerError
	reason := cause.Error()
	switch {
	case ctx.Err() != nil:
		// An aborted run is the worker's doing, not the model provider's.
		reason = types.InterruptedReason
	case errors.Is(cause, apperr.ErrUpstreamFailure):
		kind = types.FailureKindUpstreamFailure
	}
	// The job row outlives the worker's context.
	writeCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}
	if err := r.queue.FailWithKind(writeCtx, job.RequestID, kind, reason); err != nil && !errors.Is(err, apperr.ErrInvalidTransition) {
		return fmt.Errorf("record failure %v: %w", cause, err)
	}
	if kind == types.FailureKindUpstreamFailure {
		return nil
	}
	return cause
}

func (r *generationRunner) archivePlan(ctx context.Context, userID, planID uuid.UUID, raw []byte) {
	if r.archive == nil {
		return
	}
	key := fmt.Sprintf("plans/%s/%s.json", userID, planID)
	if err := r.archive.Put(ctx, key, raw); err != nil {
		r.log.Warn("Plan archive failed", "plan_id", planID, "error", err)
	}
}

func decodeInput(raw datatypes.JSON) map[string]any {
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}
