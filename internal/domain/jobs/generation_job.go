package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	GenerationStatusPending    = "pending"
	GenerationStatusInProgress = "in_progress"
	GenerationStatusCompleted  = "completed"
	GenerationStatusFailed     = "failed"
)

const (
	GenerationKindSplit   = "split"
	GenerationKindWorkout = "workout"
)

const (
	FailureKindWorkerError     = "worker_error"
	FailureKindUpstreamFailure = "upstream_failure"
	FailureKindUserCanceled    = "user_canceled"
)

// CancelReason is the reserved error message recorded for user cancellation.
const CancelReason = "canceled_by_user"

// InterruptedReason is recorded when a run is aborted by worker shutdown.
const InterruptedReason = "interrupted_by_shutdown"

// DefaultStaleAfter is how long a non-terminal job may sit before readers ignore it.
const DefaultStaleAfter = 10 * time.Minute

// GenerationJob tracks one asynchronous plan or workout generation, keyed by the
// client-supplied RequestID.
type GenerationJob struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID          uuid.UUID      `gorm:"type:uuid;column:request_id;not null;uniqueIndex" json:"request_id"`
	UserID             uuid.UUID      `gorm:"type:uuid;column:user_id;not null;index" json:"user_id"`
	OwnerContext       string         `gorm:"column:owner_context" json:"owner_context,omitempty"`
	Kind               string         `gorm:"column:kind;not null" json:"kind"`
	Status             string         `gorm:"column:status;not null;index" json:"status"`
	Progress           int            `gorm:"column:progress;not null" json:"progress"`
	Phase              string         `gorm:"column:phase" json:"phase,omitempty"`
	Input              datatypes.JSON `gorm:"column:input;type:jsonb" json:"input,omitempty"`
	ErrorMessage       string         `gorm:"column:error_message" json:"error_message,omitempty"`
	FailureKind        string         `gorm:"column:failure_kind" json:"failure_kind,omitempty"`
	ProducedArtifactID *uuid.UUID     `gorm:"type:uuid;column:produced_artifact_id" json:"produced_artifact_id,omitempty"`
	ClaimedAt          *time.Time     `gorm:"column:claimed_at;index" json:"-"`
	StartedAt          *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt        *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
}

func (GenerationJob) TableName() string { return "generation_job" }

func IsTerminalGenerationStatus(status string) bool {
	return status == GenerationStatusCompleted || status == GenerationStatusFailed
}

func (j *GenerationJob) IsTerminal() bool {
	return j != nil && IsTerminalGenerationStatus(j.Status)
}

// IsStale reports a non-terminal job that has outlived staleAfter since creation.
func (j *GenerationJob) IsStale(now time.Time, staleAfter time.Duration) bool {
	if j == nil || j.IsTerminal() {
		return false
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return now.Sub(j.CreatedAt) > staleAfter
}

// IsActive is true for non-terminal, non-stale jobs: the ones that hold the user's slot.
func (j *GenerationJob) IsActive(now time.Time, staleAfter time.Duration) bool {
	return j != nil && !j.IsTerminal() && !j.IsStale(now, staleAfter)
}
