package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	WorkoutStatusDraft      = "draft"
	WorkoutStatusReady      = "ready"
	WorkoutStatusInProgress = "in_progress"
	WorkoutStatusCompleted  = "completed"
)

// Workout is a concrete workout for one cycle day. Several may exist for the same day.
type Workout struct {
	ID          uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID                     `gorm:"type:uuid;column:user_id;not null;index:idx_workout_user_plan" json:"user_id"`
	PlanID      uuid.UUID                     `gorm:"type:uuid;column:plan_id;not null;index:idx_workout_user_plan" json:"plan_id"`
	CycleDay    int                           `gorm:"column:cycle_day;not null" json:"cycle_day"`
	Name        string                        `gorm:"column:name" json:"name"`
	Status      string                        `gorm:"column:status;not null;index" json:"status"`
	Exercises   datatypes.JSONSlice[Exercise] `gorm:"column:exercises" json:"exercises"`
	StartedAt   *time.Time                    `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time                    `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time                     `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time                     `gorm:"not null" json:"updated_at"`
}

func (Workout) TableName() string { return "workout" }

// SetLog is one logged (or skipped) set of a workout exercise.
type SetLog struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkoutID    uuid.UUID `gorm:"type:uuid;column:workout_id;not null;index" json:"workout_id"`
	ExerciseName string    `gorm:"column:exercise_name;not null" json:"exercise_name"`
	SetNumber    int       `gorm:"column:set_number;not null" json:"set_number"`
	Reps         int       `gorm:"column:reps" json:"reps"`
	Weight       float64   `gorm:"column:weight" json:"weight"`
	Skipped      bool      `gorm:"column:skipped;not null" json:"skipped"`
	LoggedAt     time.Time `gorm:"column:logged_at;not null" json:"logged_at"`
}

func (SetLog) TableName() string { return "set_log" }
