package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

type WorkoutRepo interface {
	Create(dbc dbctx.Context, w *types.Workout) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Workout, error)
	ListByPlan(dbc dbctx.Context, userID, planID uuid.UUID) ([]*types.Workout, error)
}

type workoutRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkoutRepo(db *gorm.DB, baseLog *logger.Logger) WorkoutRepo {
	return &workoutRepo{db: db, log: baseLog.With("repo", "WorkoutRepo")}
}

func (r *workoutRepo) Create(dbc dbctx.Context, w *types.Workout) error {
	transaction := dbc.DB(r.db)
	if w == nil {
		return nil
	}
	now := time.Now().UTC()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	return transaction.WithContext(dbc.Context()).Create(w).Error
}

func (r *workoutRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Workout, error) {
	transaction := dbc.DB(r.db)
	if id == uuid.Nil {
		return nil, nil
	}
	var w types.Workout
	if err := transaction.WithContext(dbc.Context()).
		Where("id = ?", id).
		Limit(1).
		Find(&w).Error; err != nil {
		return nil, err
	}
	if w.ID == uuid.Nil {
		return nil, nil
	}
	return &w, nil
}

// ListByPlan returns every workout of the user under planID, all days and statuses.
func (r *workoutRepo) ListByPlan(dbc dbctx.Context, userID, planID uuid.UUID) ([]*types.Workout, error) {
	transaction := dbc.DB(r.db)
	var out []*types.Workout
	if userID == uuid.Nil || planID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Context()).
		Where("user_id = ? AND plan_id = ?", userID, planID).
		Order("cycle_day ASC, created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
