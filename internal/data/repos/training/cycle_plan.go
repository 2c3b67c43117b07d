package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

type CyclePlanRepo interface {
	Create(dbc dbctx.Context, plan *types.CyclePlan, sessions []*types.CycleSession) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CyclePlan, error)
	ListSessions(dbc dbctx.Context, planID uuid.UUID) ([]*types.CycleSession, error)
}

type cyclePlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCyclePlanRepo(db *gorm.DB, baseLog *logger.Logger) CyclePlanRepo {
	return &cyclePlanRepo{db: db, log: baseLog.With("repo", "CyclePlanRepo")}
}

// Create inserts the plan and its sessions; callers wanting atomicity pass a Tx.
func (r *cyclePlanRepo) Create(dbc dbctx.Context, plan *types.CyclePlan, sessions []*types.CycleSession) error {
	transaction := dbc.DB(r.db)
	if plan == nil {
		return nil
	}
	now := time.Now().UTC()
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	if err := transaction.WithContext(dbc.Context()).Omit("Sessions").Create(plan).Error; err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}
	for _, s := range sessions {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		s.PlanID = plan.ID
		s.CreatedAt = now
		s.UpdatedAt = now
	}
	return transaction.WithContext(dbc.Context()).Create(&sessions).Error
}

func (r *cyclePlanRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CyclePlan, error) {
	transaction := dbc.DB(r.db)
	if id == uuid.Nil {
		return nil, nil
	}
	var plan types.CyclePlan
	if err := transaction.WithContext(dbc.Context()).
		Where("id = ?", id).
		Limit(1).
		Find(&plan).Error; err != nil {
		return nil, err
	}
	if plan.ID == uuid.Nil {
		return nil, nil
	}
	return &plan, nil
}

func (r *cyclePlanRepo) ListSessions(dbc dbctx.Context, planID uuid.UUID) ([]*types.CycleSession, error) {
	transaction := dbc.DB(r.db)
	var out []*types.CycleSession
	if planID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Context()).
		Where("plan_id = ?", planID).
		Order("day ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
