package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos/jobs"
	"github.com/yungbote/cyclecoach-backend/internal/data/repos/training"
	"github.com/yungbote/cyclecoach-backend/internal/data/repos/user"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

type GenerationJobRepo = jobs.GenerationJobRepo

type CyclePlanRepo = training.CyclePlanRepo
type WorkoutRepo = training.WorkoutRepo
type SetLogRepo = training.SetLogRepo

type UserProfileRepo = user.UserProfileRepo

var IsUniqueViolation = jobs.IsUniqueViolation

func NewGenerationJobRepo(db *gorm.DB, baseLog *logger.Logger) GenerationJobRepo {
	return jobs.NewGenerationJobRepo(db, baseLog)
}

func NewCyclePlanRepo(db *gorm.DB, baseLog *logger.Logger) CyclePlanRepo {
	return training.NewCyclePlanRepo(db, baseLog)
}

func NewWorkoutRepo(db *gorm.DB, baseLog *logger.Logger) WorkoutRepo {
	return training.NewWorkoutRepo(db, baseLog)
}

func NewSetLogRepo(db *gorm.DB, baseLog *logger.Logger) SetLogRepo {
	return training.NewSetLogRepo(db, baseLog)
}

func NewUserProfileRepo(db *gorm.DB, baseLog *logger.Logger) UserProfileRepo {
	return user.NewUserProfileRepo(db, baseLog)
}
