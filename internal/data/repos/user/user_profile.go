package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

type UserProfileRepo interface {
	Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error)
	GetActivePlanID(dbc dbctx.Context, userID uuid.UUID) (*uuid.UUID, error)
	SetActivePlan(dbc dbctx.Context, userID uuid.UUID, planID uuid.UUID) error
	SetCurrentCycleDay(dbc dbctx.Context, userID uuid.UUID, day int) error
}

type userProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProfileRepo(db *gorm.DB, baseLog *logger.Logger) UserProfileRepo {
	return &userProfileRepo{db: db, log: baseLog.With("repo", "UserProfileRepo")}
}

func (r *userProfileRepo) Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error) {
	transaction := dbc.DB(r.db)
	if userID == uuid.Nil {
		return nil, nil
	}
	var p types.UserProfile
	if err := transaction.WithContext(dbc.Context()).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&p).Error; err != nil {
		return nil, err
	}
	if p.UserID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *userProfileRepo) GetActivePlanID(dbc dbctx.Context, userID uuid.UUID) (*uuid.UUID, error) {
	p, err := r.Get(dbc, userID)
	if err != nil || p == nil {
		return nil, err
	}
	return p.ActivePlanID, nil
}

// SetActivePlan points the profile at planID and restarts the cycle at day 1,
// creating the profile row on first use.
func (r *userProfileRepo) SetActivePlan(dbc dbctx.Context, userID uuid.UUID, planID uuid.UUID) error {
	transaction := dbc.DB(r.db)
	now := time.Now().UTC()
	p := &types.UserProfile{
		UserID:          userID,
		ActivePlanID:    &planID,
		CurrentCycleDay: 1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return transaction.WithContext(dbc.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"active_plan_id", "current_cycle_day", "updated_at"}),
		}).
		Create(p).Error
}

func (r *userProfileRepo) SetCurrentCycleDay(dbc dbctx.Context, userID uuid.UUID, day int) error {
	transaction := dbc.DB(r.db)
	return transaction.WithContext(dbc.Context()).
		Model(&types.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"current_cycle_day": day,
			"updated_at":        time.Now().UTC(),
		}).Error
}
