package training

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
)

func TestCyclePlanRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewCyclePlanRepo(db, testutil.Logger(t))

	plan := &types.CyclePlan{UserID: uuid.New(), Name: "PPL", CycleDays: 4, Document: datatypes.JSON([]byte("{}"))}
	sessions := []*types.CycleSession{
		{Day: 3, Name: "Legs", TargetVolume: datatypes.NewJSONType(types.Volume{"quads": 8})},
		{Day: 1, Name: "Push", TargetVolume: datatypes.NewJSONType(types.Volume{"chest": 10, "triceps": 5}),
			Exercises: datatypes.JSONSlice[types.Exercise]{{Name: "Bench Press", Sets: 4}}},
	}
	if err := repo.Create(dbc, plan, sessions); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(dbc, plan.ID)
	if err != nil || got == nil || got.CycleDays != 4 {
		t.Fatalf("GetByID: %#v err=%v", got, err)
	}
	list, err := repo.ListSessions(dbc, plan.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 2 || list[0].Day != 1 || list[1].Day != 3 {
		t.Fatalf("sessions should be ordered by day: %#v", list)
	}
	if v := list[0].TargetVolume.Data()["chest"]; v != 10 {
		t.Fatalf("target volume round trip: chest=%v", v)
	}
	if len(list[0].Exercises) != 1 || list[0].Exercises[0].Name != "Bench Press" {
		t.Fatalf("exercises round trip: %#v", list[0].Exercises)
	}
}

func TestWorkoutAndSetLogRepos(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	workouts := NewWorkoutRepo(db, testutil.Logger(t))
	setLogs := NewSetLogRepo(db, testutil.Logger(t))

	userID, planID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	w1 := testutil.SeedWorkout(t, ctx, db, userID, planID, 1, types.WorkoutStatusCompleted, now.Add(-time.Hour), nil)
	_ = testutil.SeedWorkout(t, ctx, db, userID, uuid.New(), 1, types.WorkoutStatusReady, now, nil)
	w2 := &types.Workout{UserID: userID, PlanID: planID, CycleDay: 2, Status: types.WorkoutStatusReady}
	if err := workouts.Create(dbc, w2); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := workouts.ListByPlan(dbc, userID, planID)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByPlan should scope by plan: %d err=%v", len(list), err)
	}

	if err := setLogs.Create(dbc, []*types.SetLog{
		{WorkoutID: w1.ID, ExerciseName: "Bench Press", SetNumber: 2, Reps: 8},
		{WorkoutID: w1.ID, ExerciseName: "Bench Press", SetNumber: 1, Reps: 8},
		{WorkoutID: w2.ID, ExerciseName: "Squat", SetNumber: 1, Reps: 5},
	}); err != nil {
		t.Fatalf("Create set logs: %v", err)
	}
	logs, err := setLogs.ListByWorkout(dbc, w1.ID)
	if err != nil || len(logs) != 2 || logs[0].SetNumber != 1 {
		t.Fatalf("ListByWorkout: %#v err=%v", logs, err)
	}
}
