package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos"
	"github.com/yungbote/cyclecoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/modules/training/muscles"
	"github.com/yungbote/cyclecoach-backend/internal/modules/training/timeline"
	apperr "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
)

func newTestTimelineService(t *testing.T) (TimelineService, context.Context, func() *testTimelineFixture) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	svc := NewTimelineService(db, log,
		repos.NewUserProfileRepo(db, log),
		repos.NewCyclePlanRepo(db, log),
		repos.NewWorkoutRepo(db, log),
		repos.NewSetLogRepo(db, log),
		muscles.Default(log),
	)
	seed := func() *testTimelineFixture {
		userID := uuid.New()
		plan := testutil.SeedPlan(t, ctx, db, userID, 4, map[int]types.Volume{
			1: {"chest": 10},
			2: {"back": 8},
			4: {"quads": 6},
		})
		testutil.SeedProfile(t, ctx, db, userID, &plan.ID, 3)

		base := time.Now().UTC().Add(-48 * time.Hour)
		bench := []types.Exercise{{Name: "Bench Press", Sets: 4, PrimaryMuscles: []string{"chest"}, SecondaryMuscles: []string{"triceps"}}}
		older := testutil.SeedWorkout(t, ctx, db, userID, plan.ID, 1, types.WorkoutStatusCompleted, base, bench)
		newer := testutil.SeedWorkout(t, ctx, db, userID, plan.ID, 1, types.WorkoutStatusCompleted, base.Add(2*time.Hour), bench)
		testutil.SeedSetLogs(t, ctx, db, older.ID, "Bench Press", 3, false)
		testutil.SeedSetLogs(t, ctx, db, newer.ID, "bench press ", 10, false)
		testutil.SeedSetLogs(t, ctx, db, newer.ID, "Bench Press", 2, true)
		ready := testutil.SeedWorkout(t, ctx, db, userID, plan.ID, 4, types.WorkoutStatusReady, base, nil)
		return &testTimelineFixture{userID: userID, plan: plan, newer: newer, ready: ready}
	}
	return svc, ctx, seed
}

type testTimelineFixture struct {
	userID uuid.UUID
	plan   *types.CyclePlan
	newer  *types.Workout
	ready  *types.Workout
}

func TestTimelineServiceAssemblesActivePlan(t *testing.T) {
	svc, ctx, seed := newTestTimelineService(t)
	f := seed()

	tl, err := svc.GetTimeline(ctx, f.userID)
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	if tl.PlanID != f.plan.ID || tl.CycleDays != 4 || tl.CurrentCycleDay != 3 {
		t.Fatalf("timeline header = %+v", tl)
	}
	want := []timeline.DayStatus{timeline.DayCompleted, timeline.DayCompleted, timeline.DayCurrent, timeline.DayPreGenerated}
	for i, w := range want {
		if tl.Days[i].Status != w {
			t.Fatalf("day %d status = %s, want %s", i+1, tl.Days[i].Status, w)
		}
	}

	d1 := tl.Days[0]
	if d1.CompletedWorkout == nil || d1.CompletedWorkout.ID != f.newer.ID {
		t.Fatalf("day 1 should show the most recent completed workout")
	}
	chest := d1.CompletedWorkout.Variance["chest"]
	if chest.Actual != 10 || chest.Diff != 0 || chest.Percent != 0 {
		t.Fatalf("chest variance = %+v", chest)
	}
	if got := d1.CompletedWorkout.ActualVolume["triceps"]; got != 5 {
		t.Fatalf("triceps actual = %v, want 5", got)
	}
	if tl.Days[1].CompletedWorkout != nil {
		t.Fatalf("skipped past day should carry no workout")
	}
	if p := tl.Days[3].PreGeneratedWorkout; p == nil || p.ID != f.ready.ID {
		t.Fatalf("day 4 pre-generated = %+v", p)
	}
}

func TestTimelineServiceWithoutActivePlan(t *testing.T) {
	svc, ctx, _ := newTestTimelineService(t)
	if _, err := svc.GetTimeline(ctx, uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
