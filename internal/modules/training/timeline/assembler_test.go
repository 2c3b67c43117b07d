package timeline

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/modules/training/muscles"
)

func session(day int, target types.Volume) *types.CycleSession {
	return &types.CycleSession{ID: uuid.New(), Day: day, Name: "s", TargetVolume: datatypes.NewJSONType(target)}
}

func TestAssembleFourDayCycle(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	plan := &types.CyclePlan{ID: uuid.New(), Name: "Upper/Lower", CycleDays: 4}

	bench := types.Exercise{Name: "Bench Press", Sets: 4, PrimaryMuscles: []string{"chest"}, SecondaryMuscles: []string{"triceps"}}
	done := &types.Workout{ID: uuid.New(), CycleDay: 2, Status: types.WorkoutStatusCompleted, CreatedAt: base,
		Exercises: datatypes.JSONSlice[types.Exercise]{bench}}
	inProg := &types.Workout{ID: uuid.New(), CycleDay: 2, Status: types.WorkoutStatusInProgress, CreatedAt: base.Add(time.Hour)}
	pre := &types.Workout{ID: uuid.New(), CycleDay: 4, Status: types.WorkoutStatusReady, CreatedAt: base, Name: "Lower B"}

	var logs []*types.SetLog
	for i := 1; i <= 12; i++ {
		logs = append(logs, &types.SetLog{WorkoutID: done.ID, ExerciseName: "BENCH PRESS", SetNumber: i})
	}

	tl := Assemble(Input{
		Plan: plan,
		Sessions: []*types.CycleSession{
			session(1, types.Volume{"back": 8}),
			session(2, types.Volume{"chest": 10}),
			session(4, types.Volume{"quads": 8}),
		},
		Workouts:        []*types.Workout{done, inProg, pre},
		CurrentCycleDay: 2,
		SetLogs:         map[uuid.UUID][]*types.SetLog{done.ID: logs},
	}, muscles.Default(nil))

	if tl == nil || len(tl.Days) != 4 || tl.CurrentCycleDay != 2 {
		t.Fatalf("unexpected timeline %+v", tl)
	}
	want := []DayStatus{DayCompleted, DayInProgress, DayRest, DayPreGenerated}
	for i, w := range want {
		if tl.Days[i].Status != w {
			t.Fatalf("day %d: got %s, want %s", i+1, tl.Days[i].Status, w)
		}
	}

	d1 := tl.Days[0]
	if d1.CompletedWorkout != nil {
		t.Fatalf("day 1 has no workout record, got %+v", d1.CompletedWorkout)
	}
	d2 := tl.Days[1]
	if d2.CompletedWorkout == nil || d2.CompletedWorkout.ID != done.ID {
		t.Fatalf("day 2 completed workout missing")
	}
	v := d2.CompletedWorkout.Variance["chest"]
	if v.Target != 10 || v.Actual != 12 || v.Diff != 2 || v.Percent != 20 {
		t.Fatalf("chest variance = %+v", v)
	}
	if got := d2.CompletedWorkout.ActualVolume["triceps"]; got != 6 {
		t.Fatalf("triceps actual = %v, want 6", got)
	}
	if _, ok := d2.CompletedWorkout.Variance["triceps"]; ok {
		t.Fatalf("variance must only cover target muscles")
	}
	if d2.PreGeneratedWorkout == nil || d2.PreGeneratedWorkout.ID != inProg.ID {
		t.Fatalf("day 2 should surface the in-progress workout")
	}
	if tl.Days[2].Session != nil {
		t.Fatalf("rest day should have no session")
	}
	if p := tl.Days[3].PreGeneratedWorkout; p == nil || p.ID != pre.ID || p.Name != "Lower B" {
		t.Fatalf("day 4 pre-generated workout = %+v", p)
	}
}

func TestAssembleCompletedWithoutSessionSkipsVariance(t *testing.T) {
	plan := &types.CyclePlan{ID: uuid.New(), CycleDays: 2}
	w := &types.Workout{ID: uuid.New(), CycleDay: 2, Status: types.WorkoutStatusCompleted, CreatedAt: time.Now()}
	tl := Assemble(Input{Plan: plan, Workouts: []*types.Workout{w}, CurrentCycleDay: 1}, muscles.Default(nil))
	d := tl.Days[1]
	if d.Status != DayCompleted || d.CompletedWorkout == nil || d.CompletedWorkout.Variance != nil {
		t.Fatalf("unexpected day %+v", d)
	}
}

func TestAssembleClampsCycleDayAndNilPlan(t *testing.T) {
	if Assemble(Input{}, muscles.Default(nil)) != nil {
		t.Fatalf("nil plan should yield nil timeline")
	}
	plan := &types.CyclePlan{ID: uuid.New(), CycleDays: 3}
	if tl := Assemble(Input{Plan: plan, CurrentCycleDay: 0}, muscles.Default(nil)); tl.CurrentCycleDay != 1 || tl.Days[0].Status != DayCurrent {
		t.Fatalf("cycle day 0 should clamp to 1: %+v", tl)
	}
	if tl := Assemble(Input{Plan: plan, CurrentCycleDay: 7}, muscles.Default(nil)); tl.CurrentCycleDay != 3 {
		t.Fatalf("cycle day past the end should clamp: %d", tl.CurrentCycleDay)
	}
}
