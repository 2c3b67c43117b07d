package timeline

import "testing"

func TestResolveStatusPrecedence(t *testing.T) {
	cases := []struct {
		name string
		in   DayFacts
		want DayStatus
	}{
		{"current with in-progress beats completed", DayFacts{Day: 2, CurrentCycleDay: 2, HasCompletedWorkout: true, HasInProgressWorkout: true}, DayInProgress},
		{"current completed same day", DayFacts{Day: 2, CurrentCycleDay: 2, HasCompletedWorkout: true}, DayCompleted},
		{"current untouched", DayFacts{Day: 2, CurrentCycleDay: 2, HasPreGeneratedWorkout: true}, DayCurrent},
		{"current rest day is still current", DayFacts{Day: 2, CurrentCycleDay: 2, IsRestDay: true}, DayCurrent},
		{"past day without workout", DayFacts{Day: 1, CurrentCycleDay: 2}, DayCompleted},
		{"past rest day", DayFacts{Day: 1, CurrentCycleDay: 3, IsRestDay: true}, DayCompleted},
		{"future day already completed", DayFacts{Day: 4, CurrentCycleDay: 2, HasCompletedWorkout: true}, DayCompleted},
		{"future rest", DayFacts{Day: 3, CurrentCycleDay: 2, IsRestDay: true, HasPreGeneratedWorkout: true}, DayRest},
		{"future pre-generated", DayFacts{Day: 4, CurrentCycleDay: 2, HasPreGeneratedWorkout: true}, DayPreGenerated},
		{"future in progress only", DayFacts{Day: 4, CurrentCycleDay: 2, HasInProgressWorkout: true}, DayUpcoming},
		{"future plain", DayFacts{Day: 4, CurrentCycleDay: 2}, DayUpcoming},
	}
	for _, tc := range cases {
		if got := ResolveStatus(tc.in); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
		if again := ResolveStatus(tc.in); again != ResolveStatus(tc.in) {
			t.Fatalf("%s: not deterministic", tc.name)
		}
	}
}
