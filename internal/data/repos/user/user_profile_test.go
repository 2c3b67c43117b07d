package user

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos/testutil"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
)

func TestUserProfileRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewUserProfileRepo(db, testutil.Logger(t))

	userID := uuid.New()
	if got, err := repo.GetActivePlanID(dbc, userID); err != nil || got != nil {
		t.Fatalf("expected nil plan for unknown profile, got %v err=%v", got, err)
	}

	planA := uuid.New()
	if err := repo.SetActivePlan(dbc, userID, planA); err != nil {
		t.Fatalf("SetActivePlan: %v", err)
	}
	if err := repo.SetCurrentCycleDay(dbc, userID, 3); err != nil {
		t.Fatalf("SetCurrentCycleDay: %v", err)
	}
	p, err := repo.Get(dbc, userID)
	if err != nil || p == nil || p.ActivePlanID == nil || *p.ActivePlanID != planA || p.CurrentCycleDay != 3 {
		t.Fatalf("unexpected profile %#v err=%v", p, err)
	}

	planB := uuid.New()
	if err := repo.SetActivePlan(dbc, userID, planB); err != nil {
		t.Fatalf("SetActivePlan again: %v", err)
	}
	p, err = repo.Get(dbc, userID)
	if err != nil || *p.ActivePlanID != planB || p.CurrentCycleDay != 1 {
		t.Fatalf("expected plan B at day 1, got %#v err=%v", p, err)
	}
}
