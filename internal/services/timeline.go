package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos"
	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/modules/training/timeline"
	"github.com/yungbote/cyclecoach-backend/internal/modules/training/volume"
	apperr "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

type TimelineService interface {
	// GetTimeline returns ErrNotFound when the user has no active plan.
	GetTimeline(ctx context.Context, userID uuid.UUID) (*timeline.Timeline, error)
}

type timelineService struct {
	db       *gorm.DB
	log      *logger.Logger
	profiles repos.UserProfileRepo
	plans    repos.CyclePlanRepo
	workouts repos.WorkoutRepo
	setLogs  repos.SetLogRepo
	attr     volume.Attributor
}

func NewTimelineService(
	db *gorm.DB,
	baseLog *logger.Logger,
	profiles repos.UserProfileRepo,
	plans repos.CyclePlanRepo,
	workouts repos.WorkoutRepo,
	setLogs repos.SetLogRepo,
	attr volume.Attributor,
) TimelineService {
	return &timelineService{
		db:       db,
		log:      baseLog.With("service", "TimelineService"),
		profiles: profiles,
		plans:    plans,
		workouts: workouts,
		setLogs:  setLogs,
		attr:     attr,
	}
}

func (s *timelineService) GetTimeline(ctx context.Context, userID uuid.UUID) (*timeline.Timeline, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}

	profile, err := s.profiles.Get(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil || profile.ActivePlanID == nil {
		return nil, fmt.Errorf("no active plan: %w", apperr.ErrNotFound)
	}
	planID := *profile.ActivePlanID

	var (
		plan     *types.CyclePlan
		sessions []*types.CycleSession
		workouts []*types.Workout
	)
	g, gctx := errgroup.WithContext(ctx)
	gdbc := dbctx.Context{Ctx: gctx, Tx: s.db}
	g.Go(func() error {
		p, err := s.plans.GetByID(gdbc, planID)
		plan = p
		return err
	})
	g.Go(func() error {
		ss, err := s.plans.ListSessions(gdbc, planID)
		sessions = ss
		return err
	})
	g.Go(func() error {
		ws, err := s.workouts.ListByPlan(gdbc, userID, planID)
		workouts = ws
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load plan data: %w", err)
	}
	if plan == nil || plan.UserID != userID {
		return nil, fmt.Errorf("active plan %s: %w", planID, apperr.ErrNotFound)
	}

	// Only the workout the timeline will show per day needs its set logs.
	picks := timeline.PickWorkouts(workouts, plan.CycleDays)
	logs, err := s.loadSetLogs(ctx, picks)
	if err != nil {
		return nil, err
	}

	return timeline.Assemble(timeline.Input{
		Plan:            plan,
		Sessions:        sessions,
		Workouts:        workouts,
		CurrentCycleDay: profile.CurrentCycleDay,
		SetLogs:         logs,
	}, s.attr), nil
}

// loadSetLogs issues one bulk query per completed workout.
func (s *timelineService) loadSetLogs(ctx context.Context, picks map[int]timeline.DayWorkouts) (map[uuid.UUID][]*types.SetLog, error) {
	out := map[uuid.UUID][]*types.SetLog{}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, dw := range picks {
		w := dw.Completed
		if w == nil {
			continue
		}
		g.Go(func() error {
			rows, err := s.setLogs.ListByWorkout(dbctx.Context{Ctx: gctx, Tx: s.db}, w.ID)
			if err != nil {
				return fmt.Errorf("load set logs for workout %s: %w", w.ID, err)
			}
			mu.Lock()
			out[w.ID] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
