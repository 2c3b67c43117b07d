package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos"
	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	apperr "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

var queueTracer = otel.Tracer("cyclecoach/services/generation_queue")

type StartRequest struct {
	UserID       uuid.UUID
	RequestID    uuid.UUID
	Kind         string
	OwnerContext string
	Input        datatypes.JSON
}

// JobSnapshot is what poll and stream both hand back to clients.
type JobSnapshot struct {
	Job   *types.GenerationJob `json:"job"`
	Stale bool                 `json:"stale"`
}

// GenerationQueue owns the generation job lifecycle. Every mutation is keyed by
// request_id and applied as one conditional UPDATE, so concurrent writers on the
// same job resolve first-writer-wins.
type GenerationQueue interface {
	Start(ctx context.Context, req StartRequest) (*types.GenerationJob, error)
	Resume(ctx context.Context, userID uuid.UUID) (*types.GenerationJob, error)
	Poll(ctx context.Context, userID, requestID uuid.UUID) (*JobSnapshot, error)
	Get(ctx context.Context, requestID uuid.UUID) (*types.GenerationJob, error)

	ReportProgress(ctx context.Context, requestID uuid.UUID, phase string, percent int) error
	Complete(ctx context.Context, requestID uuid.UUID, artifactID uuid.UUID) error
	Fail(ctx context.Context, requestID uuid.UUID, reason string) error
	FailWithKind(ctx context.Context, requestID uuid.UUID, failureKind string, reason string) error
	Cancel(ctx context.Context, requestID uuid.UUID, actorUserID uuid.UUID) (*types.GenerationJob, error)

	StaleAfter() time.Duration
}

type generationQueue struct {
	db         *gorm.DB
	log        *logger.Logger
	repo       repos.GenerationJobRepo
	notify     JobNotifier
	dispatch   GenerationDispatcher
	staleAfter time.Duration
	now        func() time.Time
}

func NewGenerationQueue(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.GenerationJobRepo,
	notify JobNotifier,
	dispatch GenerationDispatcher,
	staleAfter time.Duration,
) GenerationQueue {
	if staleAfter <= 0 {
		staleAfter = types.DefaultStaleAfter
	}
	if dispatch == nil {
		dispatch = NewPollingDispatcher()
	}
	return &generationQueue{
		db:         db,
		log:        baseLog.With("service", "GenerationQueue"),
		repo:       repo,
		notify:     notify,
		dispatch:   dispatch,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (q *generationQueue) StaleAfter() time.Duration { return q.staleAfter }

func (q *generationQueue) dbc(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx, Tx: q.db}
}

func (q *generationQueue) clock() time.Time {
	return q.now().UTC()
}

func (q *generationQueue) activeCutoff() time.Time {
	return q.clock().Add(-q.staleAfter)
}

func (q *generationQueue) Start(ctx context.Context, req StartRequest) (*types.GenerationJob, error) {
	ctx, span := queueTracer.Start(ctx, "GenerationQueue.Start", trace.WithAttributes(
		attribute.String("generation.request_id", req.RequestID.String()),
		attribute.String("generation.kind", req.Kind),
	))
	defer span.End()

	if req.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id: %w", apperr.ErrInvalidArgument)
	}
	if req.RequestID == uuid.Nil {
		return nil, fmt.Errorf("missing request_id: %w", apperr.ErrInvalidArgument)
	}
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if kind == "" {
		kind = types.GenerationKindSplit
	}
	if kind != types.GenerationKindSplit && kind != types.GenerationKindWorkout {
		return nil, fmt.Errorf("unknown kind %q: %w", req.Kind, apperr.ErrInvalidArgument)
	}

	existing, err := q.repo.GetByRequestID(q.dbc(ctx), req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("load job by request_id: %w", err)
	}
	if existing != nil {
		return q.sameRequest(existing, req.UserID)
	}

	active, err := q.repo.GetLatestActiveForUser(q.dbc(ctx), req.UserID, q.activeCutoff())
	if err != nil {
		return nil, fmt.Errorf("load active job: %w", err)
	}
	if active != nil {
		return nil, &apperr.ConflictError{Reason: "generation already in progress", Active: active}
	}

	input := req.Input
	if len(input) == 0 {
		input = datatypes.JSON([]byte(`{}`))
	}
	now := q.clock()
	job := &types.GenerationJob{
		ID:           uuid.New(),
		RequestID:    req.RequestID,
		UserID:       req.UserID,
		OwnerContext: strings.TrimSpace(req.OwnerContext),
		Kind:         kind,
		Status:       types.GenerationStatusPending,
		Progress:     0,
		Input:        input,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := q.repo.Create(q.dbc(ctx), job); err != nil {
		if !repos.IsUniqueViolation(err) {
			return nil, fmt.Errorf("create job: %w", err)
		}
		// Lost an insert race on request_id; the winner's row is the answer.
		winner, rerr := q.repo.GetByRequestID(q.dbc(ctx), req.RequestID)
		if rerr != nil {
			return nil, fmt.Errorf("reload job after duplicate insert: %w", rerr)
		}
		if winner == nil {
			return nil, fmt.Errorf("create job: %w", err)
		}
		return q.sameRequest(winner, req.UserID)
	}

	q.log.Info("Generation job created", "request_id", job.RequestID, "user_id", job.UserID, "kind", job.Kind)
	if q.notify != nil {
		q.notify.JobCreated(job)
	}

	if err := q.dispatch.Dispatch(ctx, job); err != nil {
		q.log.Error("Generation dispatch failed", "request_id", job.RequestID, "error", err)
		if ferr := q.FailWithKind(ctx, job.RequestID, types.FailureKindWorkerError, "dispatch failed: "+err.Error()); ferr != nil {
			q.log.Warn("Marking undispatched job failed", "request_id", job.RequestID, "error", ferr)
		}
		if reloaded, rerr := q.repo.GetByRequestID(q.dbc(ctx), job.RequestID); rerr == nil && reloaded != nil {
			job = reloaded
		}
	}
	return job, nil
}

func (q *generationQueue) sameRequest(job *types.GenerationJob, userID uuid.UUID) (*types.GenerationJob, error) {
	if job.UserID != userID {
		return nil, &apperr.ConflictError{Reason: "request_id already used"}
	}
	return job, nil
}

func (q *generationQueue) Resume(ctx context.Context, userID uuid.UUID) (*types.GenerationJob, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id: %w", apperr.ErrInvalidArgument)
	}
	return q.repo.GetLatestActiveForUser(q.dbc(ctx), userID, q.activeCutoff())
}

func (q *generationQueue) Poll(ctx context.Context, userID, requestID uuid.UUID) (*JobSnapshot, error) {
	job, err := q.repo.GetByRequestID(q.dbc(ctx), requestID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.UserID != userID {
		return nil, fmt.Errorf("generation job %s: %w", requestID, apperr.ErrNotFound)
	}
	return &JobSnapshot{Job: job, Stale: job.IsStale(q.clock(), q.staleAfter)}, nil
}

func (q *generationQueue) Get(ctx context.Context, requestID uuid.UUID) (*types.GenerationJob, error) {
	return q.repo.GetByRequestID(q.dbc(ctx), requestID)
}

func (q *generationQueue) ReportProgress(ctx context.Context, requestID uuid.UUID, phase string, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	now := q.clock()
	ok, err := q.repo.UpdateFieldsIfStatus(q.dbc(ctx), requestID,
		[]string{types.GenerationStatusPending, types.GenerationStatusInProgress},
		map[string]interface{}{
			"status":     types.GenerationStatusInProgress,
			"phase":      strings.TrimSpace(phase),
			"progress":   percent,
			"started_at": gorm.Expr("COALESCE(started_at, ?)", now),
			"updated_at": now,
		},
	)
	if err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	if !ok {
		job, err := q.repo.GetByRequestID(q.dbc(ctx), requestID)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("generation job %s: %w", requestID, apperr.ErrNotFound)
		}
		// Terminal jobs swallow late progress.
		return nil
	}
	q.publish(ctx, requestID, func(j *types.GenerationJob) { q.notify.JobProgress(j) })
	return nil
}

func (q *generationQueue) Complete(ctx context.Context, requestID uuid.UUID, artifactID uuid.UUID) error {
	if artifactID == uuid.Nil {
		return fmt.Errorf("missing artifact id: %w", apperr.ErrInvalidArgument)
	}
	now := q.clock()
	ok, err := q.repo.UpdateFieldsIfStatus(q.dbc(ctx), requestID,
		[]string{types.GenerationStatusInProgress},
		map[string]interface{}{
			"status":               types.GenerationStatusCompleted,
			"progress":             100,
			"phase":                "completed",
			"produced_artifact_id": artifactID,
			"completed_at":         now,
			"updated_at":           now,
		},
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if !ok {
		job, err := q.repo.GetByRequestID(q.dbc(ctx), requestID)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("generation job %s: %w", requestID, apperr.ErrNotFound)
		}
		q.log.Warn("Rejected completion", "request_id", requestID, "status", job.Status)
		return fmt.Errorf("complete job in status %s: %w", job.Status, apperr.ErrInvalidTransition)
	}
	q.log.Info("Generation job completed", "request_id", requestID, "artifact_id", artifactID)
	q.publish(ctx, requestID, func(j *types.GenerationJob) { q.notify.JobDone(j) })
	return nil
}

func (q *generationQueue) Fail(ctx context.Context, requestID uuid.UUID, reason string) error {
	return q.FailWithKind(ctx, requestID, types.FailureKindWorkerError, reason)
}

func (q *generationQueue) FailWithKind(ctx context.Context, requestID uuid.UUID, failureKind string, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "generation failed"
	}
	if failureKind == "" {
		failureKind = types.FailureKindWorkerError
	}
	now := q.clock()
	ok, err := q.repo.UpdateFieldsIfStatus(q.dbc(ctx), requestID,
		[]string{types.GenerationStatusPending, types.GenerationStatusInProgress},
		map[string]interface{}{
			"status":        types.GenerationStatusFailed,
			"error_message": reason,
			"failure_kind":  failureKind,
			"completed_at":  now,
			"updated_at":    now,
		},
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if !ok {
		job, err := q.repo.GetByRequestID(q.dbc(ctx), requestID)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("generation job %s: %w", requestID, apperr.ErrNotFound)
		}
		if job.Status == types.GenerationStatusFailed {
			return nil
		}
		q.log.Warn("Rejected failure", "request_id", requestID, "status", job.Status, "failure_kind", failureKind)
		return fmt.Errorf("fail job in status %s: %w", job.Status, apperr.ErrInvalidTransition)
	}
	q.log.Info("Generation job failed", "request_id", requestID, "failure_kind", failureKind, "reason", reason)
	q.publish(ctx, requestID, func(j *types.GenerationJob) { q.notify.JobFailed(j) })
	return nil
}

func (q *generationQueue) Cancel(ctx context.Context, requestID uuid.UUID, actorUserID uuid.UUID) (*types.GenerationJob, error) {
	job, err := q.repo.GetByRequestID(q.dbc(ctx), requestID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.UserID != actorUserID {
		return nil, fmt.Errorf("generation job %s: %w", requestID, apperr.ErrNotFound)
	}
	// Stale jobs stay as they are for audit.
	if job.IsTerminal() || job.IsStale(q.clock(), q.staleAfter) {
		return job, nil
	}
	if err := q.FailWithKind(ctx, requestID, types.FailureKindUserCanceled, types.CancelReason); err != nil {
		// A completion that landed first wins; the caller sees the completed job.
		if !errors.Is(err, apperr.ErrInvalidTransition) {
			return nil, err
		}
	}
	q.log.Info("Generation job cancel requested", "request_id", requestID, "actor", actorUserID)
	return q.repo.GetByRequestID(q.dbc(ctx), requestID)
}

// publish reloads the row after a mutation so subscribers always get the
// committed snapshot rather than the writer's local view.
func (q *generationQueue) publish(ctx context.Context, requestID uuid.UUID, fn func(j *types.GenerationJob)) {
	if q.notify == nil {
		return
	}
	job, err := q.repo.GetByRequestID(q.dbc(ctx), requestID)
	if err != nil || job == nil {
		if err != nil {
			q.log.Warn("Reload for notify failed", "request_id", requestID, "error", err)
		}
		return
	}
	fn(job)
}
