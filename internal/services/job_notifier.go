package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/realtime"
)

// JobNotifier pushes generation job snapshots to the owner's user channel and to
// the per-request channel that /stream listens on.
type JobNotifier interface {
	JobCreated(job *types.GenerationJob)
	JobProgress(job *types.GenerationJob)
	JobFailed(job *types.GenerationJob)
	JobDone(job *types.GenerationJob)
}

type jobNotifier struct {
	emit SSEEmitter
}

func NewJobNotifier(emit SSEEmitter) JobNotifier {
	return &jobNotifier{emit: emit}
}

func (n *jobNotifier) JobCreated(job *types.GenerationJob) {
	n.send(job, realtime.SSEEventJobCreated, map[string]any{"job": job})
}

func (n *jobNotifier) JobProgress(job *types.GenerationJob) {
	if job == nil {
		return
	}
	n.send(job, realtime.SSEEventJobProgress, map[string]any{
		"job_id":     job.ID,
		"request_id": job.RequestID,
		"kind":       job.Kind,
		"phase":      job.Phase,
		"progress":   job.Progress,
		"job":        job,
	})
}

func (n *jobNotifier) JobFailed(job *types.GenerationJob) {
	if job == nil {
		return
	}
	n.send(job, realtime.SSEEventJobFailed, map[string]any{
		"job_id":       job.ID,
		"request_id":   job.RequestID,
		"kind":         job.Kind,
		"phase":        job.Phase,
		"error":        job.ErrorMessage,
		"failure_kind": job.FailureKind,
		"job":          job,
	})
}

func (n *jobNotifier) JobDone(job *types.GenerationJob) {
	if job == nil {
		return
	}
	n.send(job, realtime.SSEEventJobDone, map[string]any{
		"job_id":               job.ID,
		"request_id":           job.RequestID,
		"kind":                 job.Kind,
		"produced_artifact_id": job.ProducedArtifactID,
		"job":                  job,
	})
}

func (n *jobNotifier) send(job *types.GenerationJob, event realtime.SSEEvent, data map[string]any) {
	if n == nil || n.emit == nil || job == nil || job.UserID == uuid.Nil {
		return
	}
	ctx := context.Background()
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(job.UserID),
		Event:   event,
		Data:    data,
	})
	if job.RequestID != uuid.Nil {
		n.emit.Emit(ctx, realtime.SSEMessage{
			Channel: realtime.GenerationChannel(job.RequestID),
			Event:   event,
			Data:    data,
		})
	}
}
