package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

type SetLogRepo interface {
	Create(dbc dbctx.Context, logs []*types.SetLog) error
	ListByWorkout(dbc dbctx.Context, workoutID uuid.UUID) ([]*types.SetLog, error)
}

type setLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSetLogRepo(db *gorm.DB, baseLog *logger.Logger) SetLogRepo {
	return &setLogRepo{db: db, log: baseLog.With("repo", "SetLogRepo")}
}

func (r *setLogRepo) Create(dbc dbctx.Context, logs []*types.SetLog) error {
	transaction := dbc.DB(r.db)
	if len(logs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, l := range logs {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		if l.LoggedAt.IsZero() {
			l.LoggedAt = now
		}
	}
	return transaction.WithContext(dbc.Context()).Create(&logs).Error
}

// ListByWorkout loads all set logs of one workout in a single query.
func (r *setLogRepo) ListByWorkout(dbc dbctx.Context, workoutID uuid.UUID) ([]*types.SetLog, error) {
	transaction := dbc.DB(r.db)
	var out []*types.SetLog
	if workoutID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Context()).
		Where("workout_id = ?", workoutID).
		Order("exercise_name ASC, set_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
