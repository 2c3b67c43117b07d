package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/cyclecoach-backend/internal/jobs/generation"
	"github.com/yungbote/cyclecoach-backend/internal/jobs/runtime"
	"github.com/yungbote/cyclecoach-backend/internal/modules/training/muscles"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
	"github.com/yungbote/cyclecoach-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	Queue      services.GenerationQueue
	Runner     services.GenerationRunner
	Registry   *runtime.Registry
	ActivePlan services.ActivePlanCache
	Verifier   services.CompletionVerifier
	Timeline   services.TimelineService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	auth := services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL)

	// Job events go through the bus so streams held on other nodes see them too.
	notifier := services.NewJobNotifier(&services.BusEmitter{Bus: clients.Bus, Log: log})

	dispatch := services.NewPollingDispatcher()
	if clients.Temporal != nil {
		d, err := services.NewTemporalDispatcher(log, clients.Temporal, cfg.Temporal.TaskQueue)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal dispatcher: %w", err)
		}
		dispatch = d
	}
	queue := services.NewGenerationQueue(db, log, reposet.GenerationJob, notifier, dispatch, cfg.StaleAfter)

	reader := services.NewProfileActivePlanReader(db, reposet.UserProfile)
	activePlan := services.NewUncachedActivePlan(reader)
	if clients.Redis != nil {
		activePlan = services.NewRedisActivePlanCache(log, clients.Redis, reader, cfg.ActivePlanCacheTTL)
	}

	resolver := muscles.Default(log)
	generator := services.NewTemplateGenerator(resolver)
	if clients.OpenAI != nil {
		generator = services.NewOpenAIGenerator(log, clients.OpenAI, resolver)
	}

	runner, err := services.NewGenerationRunner(services.GenerationRunnerDeps{
		DB:        db,
		Log:       log,
		Queue:     queue,
		Plans:     reposet.CyclePlan,
		Workouts:  reposet.Workout,
		Profiles:  reposet.UserProfile,
		Generator: generator,
		Cache:     activePlan,
		Archive:   clients.Archive,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init generation runner: %w", err)
	}

	registry := runtime.NewRegistry()
	if err := generation.Register(registry, runner); err != nil {
		return Services{}, fmt.Errorf("register generation handlers: %w", err)
	}

	// The verifier reads through the cache: that is the projection clients see.
	verifier := services.NewCompletionVerifier(log, activePlan)

	timeline := services.NewTimelineService(db, log,
		reposet.UserProfile,
		reposet.CyclePlan,
		reposet.Workout,
		reposet.SetLog,
		resolver,
	)

	return Services{
		Auth:       auth,
		Queue:      queue,
		Runner:     runner,
		Registry:   registry,
		ActivePlan: activePlan,
		Verifier:   verifier,
		Timeline:   timeline,
	}, nil
}
