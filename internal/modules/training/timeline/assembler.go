package timeline

import (
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/modules/training/volume"
)

type Timeline struct {
	PlanID          uuid.UUID `json:"plan_id"`
	PlanName        string    `json:"plan_name"`
	CycleDays       int       `json:"cycle_days"`
	CurrentCycleDay int       `json:"current_cycle_day"`
	Days            []Day     `json:"days"`
}

type Day struct {
	Day                 int                  `json:"day"`
	Status              DayStatus            `json:"status"`
	Session             *Session             `json:"session,omitempty"`
	CompletedWorkout    *CompletedWorkout    `json:"completed_workout,omitempty"`
	PreGeneratedWorkout *PreGeneratedWorkout `json:"pre_generated_workout,omitempty"`
}

type Session struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	TargetVolume map[string]float64 `json:"target_volume"`
	Exercises    []types.Exercise   `json:"exercises"`
}

type CompletedWorkout struct {
	ID           uuid.UUID                  `json:"id"`
	CompletedAt  *time.Time                 `json:"completed_at,omitempty"`
	ActualVolume map[string]float64         `json:"actual_volume,omitempty"`
	Variance     map[string]volume.Variance `json:"variance,omitempty"`
}

type PreGeneratedWorkout struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Status    string           `json:"status"`
	Exercises []types.Exercise `json:"exercises"`
}

type Input struct {
	Plan            *types.CyclePlan
	Sessions        []*types.CycleSession
	Workouts        []*types.Workout
	CurrentCycleDay int
	// SetLogs holds logs for the selected completed workouts, keyed by workout id.
	SetLogs map[uuid.UUID][]*types.SetLog
}

// ClampCycleDay keeps the profile counter inside 1..cycleDays.
func ClampCycleDay(day, cycleDays int) int {
	if day < 1 {
		return 1
	}
	if cycleDays > 0 && day > cycleDays {
		return cycleDays
	}
	return day
}

// Assemble derives every day of the plan's cycle. It performs no I/O.
func Assemble(in Input, attr volume.Attributor) *Timeline {
	if in.Plan == nil {
		return nil
	}
	cycleDays := in.Plan.CycleDays
	if cycleDays < 1 {
		cycleDays = 1
	}
	current := ClampCycleDay(in.CurrentCycleDay, cycleDays)

	sessions := make(map[int]*types.CycleSession, len(in.Sessions))
	for _, s := range in.Sessions {
		if s != nil {
			sessions[s.Day] = s
		}
	}
	picks := PickWorkouts(in.Workouts, cycleDays)

	tl := &Timeline{
		PlanID:          in.Plan.ID,
		PlanName:        in.Plan.Name,
		CycleDays:       cycleDays,
		CurrentCycleDay: current,
		Days:            make([]Day, 0, cycleDays),
	}
	for day := 1; day <= cycleDays; day++ {
		s := sessions[day]
		dw := picks[day]

		d := Day{
			Day: day,
			Status: ResolveStatus(DayFacts{
				Day:                    day,
				CurrentCycleDay:        current,
				HasCompletedWorkout:    dw.HasCompleted,
				HasPreGeneratedWorkout: dw.HasPreGenerated,
				HasInProgressWorkout:   dw.HasInProgress,
				IsRestDay:              s == nil,
			}),
		}
		if s != nil {
			d.Session = &Session{
				ID:           s.ID,
				Name:         s.Name,
				TargetVolume: s.TargetVolume.Data(),
				Exercises:    s.Exercises,
			}
		}
		if w := dw.Completed; w != nil {
			cw := &CompletedWorkout{ID: w.ID, CompletedAt: w.CompletedAt}
			if s != nil {
				actual := volume.ActualVolume(w.Exercises, volume.CountSets(in.SetLogs[w.ID]), attr)
				cw.ActualVolume = actual
				cw.Variance = volume.Compute(s.TargetVolume.Data(), actual)
			}
			d.CompletedWorkout = cw
		}
		if w := dw.Pending; w != nil {
			d.PreGeneratedWorkout = &PreGeneratedWorkout{
				ID:        w.ID,
				Name:      w.Name,
				Status:    w.Status,
				Exercises: w.Exercises,
			}
		}
		tl.Days = append(tl.Days, d)
	}
	return tl
}
