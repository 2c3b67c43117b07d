package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CyclePlan is a generated training split: a repeating cycle of CycleDays days.
type CyclePlan struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;column:user_id;not null;index" json:"user_id"`
	GenerationJobID *uuid.UUID     `gorm:"type:uuid;column:generation_job_id;index" json:"generation_job_id,omitempty"`
	Name            string         `gorm:"column:name;not null" json:"name"`
	CycleDays       int            `gorm:"column:cycle_days;not null" json:"cycle_days"`
	Document        datatypes.JSON `gorm:"column:document;type:jsonb" json:"-"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`

	Sessions []CycleSession `gorm:"foreignKey:PlanID" json:"sessions,omitempty"`
}

func (CyclePlan) TableName() string { return "cycle_plan" }

// CycleSession is the planned session for one day of the cycle. Days without a
// session are rest days.
type CycleSession struct {
	ID           uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"id"`
	PlanID       uuid.UUID                     `gorm:"type:uuid;column:plan_id;not null;uniqueIndex:idx_cycle_session_plan_day" json:"plan_id"`
	Day          int                           `gorm:"column:day;not null;uniqueIndex:idx_cycle_session_plan_day" json:"day"`
	Name         string                        `gorm:"column:name;not null" json:"name"`
	TargetVolume datatypes.JSONType[Volume]    `gorm:"column:target_volume" json:"target_volume"`
	Exercises    datatypes.JSONSlice[Exercise] `gorm:"column:exercises" json:"exercises"`
	CreatedAt    time.Time                     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time                     `gorm:"not null" json:"updated_at"`
}

func (CycleSession) TableName() string { return "cycle_session" }

// Volume maps a canonical muscle group to a number of working sets.
type Volume map[string]float64

// Exercise is one entry of a session template or a workout.
type Exercise struct {
	Name             string   `json:"name"`
	Sets             int      `json:"sets"`
	Reps             string   `json:"reps,omitempty"`
	PrimaryMuscles   []string `json:"primary_muscles,omitempty"`
	SecondaryMuscles []string `json:"secondary_muscles,omitempty"`
}
