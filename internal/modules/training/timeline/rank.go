package timeline

import (
	"sort"
	"time"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
)

// StatusPriority orders workout statuses for same-day selection; higher wins.
func StatusPriority(status string) int {
	switch status {
	case types.WorkoutStatusCompleted:
		return 4
	case types.WorkoutStatusInProgress:
		return 3
	case types.WorkoutStatusReady:
		return 2
	case types.WorkoutStatusDraft:
		return 1
	default:
		return 0
	}
}

// Recency is the workout's most meaningful timestamp for tie-breaking.
func Recency(w *types.Workout) time.Time {
	switch {
	case w.CompletedAt != nil:
		return *w.CompletedAt
	case w.StartedAt != nil:
		return *w.StartedAt
	default:
		return w.CreatedAt
	}
}

// Better reports whether a should be picked over b: higher status priority,
// then more recent, then larger id so equal records still order deterministically.
func Better(a, b *types.Workout) bool {
	pa, pb := StatusPriority(a.Status), StatusPriority(b.Status)
	if pa != pb {
		return pa > pb
	}
	ra, rb := Recency(a), Recency(b)
	if !ra.Equal(rb) {
		return ra.After(rb)
	}
	return a.ID.String() > b.ID.String()
}

// Rank sorts workouts best first without mutating the input.
func Rank(ws []*types.Workout) []*types.Workout {
	out := make([]*types.Workout, 0, len(ws))
	for _, w := range ws {
		if w != nil {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return Better(out[i], out[j]) })
	return out
}

// DayWorkouts summarises the workout records for one cycle day.
type DayWorkouts struct {
	Completed       *types.Workout
	Pending         *types.Workout
	HasCompleted    bool
	HasInProgress   bool
	HasPreGenerated bool
}

func isPreGenerated(status string) bool {
	return status == types.WorkoutStatusReady || status == types.WorkoutStatusDraft
}

// PickWorkouts groups workouts by day within 1..cycleDays and selects the best
// completed and best not-yet-completed record of each day.
func PickWorkouts(ws []*types.Workout, cycleDays int) map[int]DayWorkouts {
	byDay := map[int][]*types.Workout{}
	for _, w := range ws {
		if w == nil || w.CycleDay < 1 || w.CycleDay > cycleDays {
			continue
		}
		byDay[w.CycleDay] = append(byDay[w.CycleDay], w)
	}
	out := make(map[int]DayWorkouts, len(byDay))
	for day, list := range byDay {
		var dw DayWorkouts
		for _, w := range Rank(list) {
			switch {
			case w.Status == types.WorkoutStatusCompleted:
				dw.HasCompleted = true
				if dw.Completed == nil {
					dw.Completed = w
				}
			case w.Status == types.WorkoutStatusInProgress:
				dw.HasInProgress = true
				if dw.Pending == nil {
					dw.Pending = w
				}
			case isPreGenerated(w.Status):
				dw.HasPreGenerated = true
				if dw.Pending == nil {
					dw.Pending = w
				}
			}
		}
		out[day] = dw
	}
	return out
}
