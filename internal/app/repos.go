package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

type Repos struct {
	GenerationJob repos.GenerationJobRepo
	CyclePlan     repos.CyclePlanRepo
	Workout       repos.WorkoutRepo
	SetLog        repos.SetLogRepo
	UserProfile   repos.UserProfileRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		GenerationJob: repos.NewGenerationJobRepo(db, log),
		CyclePlan:     repos.NewCyclePlanRepo(db, log),
		Workout:       repos.NewWorkoutRepo(db, log),
		SetLog:        repos.NewSetLogRepo(db, log),
		UserProfile:   repos.NewUserProfileRepo(db, log),
	}
}
