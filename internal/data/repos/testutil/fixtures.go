package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
)

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, planID *uuid.UUID, currentDay int) *types.UserProfile {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.UserProfile{
		UserID:          userID,
		ActivePlanID:    planID,
		CurrentCycleDay: currentDay,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

// SeedPlan creates a plan with one session per entry of sessions, keyed by day.
func SeedPlan(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, cycleDays int, sessions map[int]types.Volume) *types.CyclePlan {
	tb.Helper()
	now := time.Now().UTC()
	plan := &types.CyclePlan{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "plan",
		CycleDays: cycleDays,
		Document:  datatypes.JSON([]byte("{}")),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(plan).Error; err != nil {
		tb.Fatalf("seed plan: %v", err)
	}
	for day, target := range sessions {
		s := &types.CycleSession{
			ID:           uuid.New(),
			PlanID:       plan.ID,
			Day:          day,
			Name:         "session",
			TargetVolume: datatypes.NewJSONType(target),
			Exercises:    datatypes.JSONSlice[types.Exercise]{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.WithContext(ctx).Create(s).Error; err != nil {
			tb.Fatalf("seed session: %v", err)
		}
	}
	return plan
}

func SeedWorkout(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, planID uuid.UUID, day int, status string, createdAt time.Time, exercises []types.Exercise) *types.Workout {
	tb.Helper()
	w := &types.Workout{
		ID:        uuid.New(),
		UserID:    userID,
		PlanID:    planID,
		CycleDay:  day,
		Name:      "workout",
		Status:    status,
		Exercises: datatypes.JSONSlice[types.Exercise](exercises),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if status == types.WorkoutStatusCompleted {
		done := createdAt.Add(time.Hour)
		w.CompletedAt = &done
	}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed workout: %v", err)
	}
	return w
}

// SeedSetLogs logs n sets of exercise for the workout; skipped marks every set skipped.
func SeedSetLogs(tb testing.TB, ctx context.Context, tx *gorm.DB, workoutID uuid.UUID, exercise string, n int, skipped bool) {
	tb.Helper()
	now := time.Now().UTC()
	for i := 1; i <= n; i++ {
		l := &types.SetLog{
			ID:           uuid.New(),
			WorkoutID:    workoutID,
			ExerciseName: exercise,
			SetNumber:    i,
			Reps:         10,
			Weight:       50,
			Skipped:      skipped,
			LoggedAt:     now,
		}
		if err := tx.WithContext(ctx).Create(l).Error; err != nil {
			tb.Fatalf("seed set log: %v", err)
		}
	}
}

func SeedGenerationJob(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string, createdAt time.Time) *types.GenerationJob {
	tb.Helper()
	j := &types.GenerationJob{
		ID:        uuid.New(),
		RequestID: uuid.New(),
		UserID:    userID,
		Kind:      types.GenerationKindSplit,
		Status:    status,
		Input:     datatypes.JSON([]byte("{}")),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed generation job: %v", err)
	}
	return j
}
