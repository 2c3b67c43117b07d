package domain

import (
	"github.com/yungbote/cyclecoach-backend/internal/domain/jobs"
	"github.com/yungbote/cyclecoach-backend/internal/domain/training"
	"github.com/yungbote/cyclecoach-backend/internal/domain/user"
)

const (
	GenerationStatusPending    = jobs.GenerationStatusPending
	GenerationStatusInProgress = jobs.GenerationStatusInProgress
	GenerationStatusCompleted  = jobs.GenerationStatusCompleted
	GenerationStatusFailed     = jobs.GenerationStatusFailed

	GenerationKindSplit   = jobs.GenerationKindSplit
	GenerationKindWorkout = jobs.GenerationKindWorkout

	FailureKindWorkerError     = jobs.FailureKindWorkerError
	FailureKindUpstreamFailure = jobs.FailureKindUpstreamFailure
	FailureKindUserCanceled    = jobs.FailureKindUserCanceled

	CancelReason      = jobs.CancelReason
	InterruptedReason = jobs.InterruptedReason

	WorkoutStatusDraft      = training.WorkoutStatusDraft
	WorkoutStatusReady      = training.WorkoutStatusReady
	WorkoutStatusInProgress = training.WorkoutStatusInProgress
	WorkoutStatusCompleted  = training.WorkoutStatusCompleted
)

type GenerationJob = jobs.GenerationJob

type CyclePlan = training.CyclePlan
type CycleSession = training.CycleSession
type Workout = training.Workout
type SetLog = training.SetLog
type Exercise = training.Exercise
type Volume = training.Volume

type UserProfile = user.UserProfile

const DefaultStaleAfter = jobs.DefaultStaleAfter

var IsTerminalGenerationStatus = jobs.IsTerminalGenerationStatus

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&user.UserProfile{},
		&training.CyclePlan{},
		&training.CycleSession{},
		&training.Workout{},
		&training.SetLog{},
		&jobs.GenerationJob{},
	}
}
