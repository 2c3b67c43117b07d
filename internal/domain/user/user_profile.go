package user

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile holds the user's training state. ActivePlanID is the projection
// read when confirming a freshly generated plan is visible.
type UserProfile struct {
	UserID          uuid.UUID  `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	ActivePlanID    *uuid.UUID `gorm:"type:uuid;column:active_plan_id" json:"active_plan_id,omitempty"`
	CurrentCycleDay int        `gorm:"column:current_cycle_day;not null" json:"current_cycle_day"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profile" }
