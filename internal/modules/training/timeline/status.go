package timeline

type DayStatus string

const (
	DayCompleted    DayStatus = "completed"
	DayInProgress   DayStatus = "in_progress"
	DayCurrent      DayStatus = "current"
	DayRest         DayStatus = "rest"
	DayPreGenerated DayStatus = "pre_generated"
	DayUpcoming     DayStatus = "upcoming"
)

// DayFacts are the inputs that decide one day's status.
type DayFacts struct {
	Day                    int
	CurrentCycleDay        int
	HasCompletedWorkout    bool
	HasPreGeneratedWorkout bool
	HasInProgressWorkout   bool
	IsRestDay              bool
}

// ResolveStatus is pure; the order of checks is the tie-break.
func ResolveStatus(f DayFacts) DayStatus {
	isCurrent := f.Day == f.CurrentCycleDay
	switch {
	case isCurrent && f.HasInProgressWorkout:
		return DayInProgress
	case isCurrent && f.HasCompletedWorkout:
		// completed today, cycle not advanced yet
		return DayCompleted
	case isCurrent:
		return DayCurrent
	case f.Day < f.CurrentCycleDay || f.HasCompletedWorkout:
		// past days count as done even when skipped
		return DayCompleted
	case f.IsRestDay:
		return DayRest
	case f.HasPreGeneratedWorkout:
		return DayPreGenerated
	default:
		return DayUpcoming
	}
}
