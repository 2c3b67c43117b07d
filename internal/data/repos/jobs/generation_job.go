package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

type GenerationJobRepo interface {
	Create(dbc dbctx.Context, job *types.GenerationJob) error
	GetByRequestID(dbc dbctx.Context, requestID uuid.UUID) (*types.GenerationJob, error)
	GetLatestActiveForUser(dbc dbctx.Context, userID uuid.UUID, createdAfter time.Time) (*types.GenerationJob, error)
	UpdateFieldsIfStatus(dbc dbctx.Context, requestID uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error)
	ClaimNextPending(dbc dbctx.Context, createdAfter time.Time) (*types.GenerationJob, error)
	ReleaseClaim(dbc dbctx.Context, id uuid.UUID) error
}

type generationJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationJobRepo(db *gorm.DB, baseLog *logger.Logger) GenerationJobRepo {
	return &generationJobRepo{
		db:  db,
		log: baseLog.With("repo", "GenerationJobRepo"),
	}
}

// IsUniqueViolation recognises duplicate-key errors from both the translated gorm
// error and a raw Postgres 23505.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *generationJobRepo) Create(dbc dbctx.Context, job *types.GenerationJob) error {
	transaction := dbc.DB(r.db)
	if job == nil {
		return nil
	}
	now := time.Now().UTC()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	return transaction.WithContext(dbc.Context()).Create(job).Error
}

func (r *generationJobRepo) GetByRequestID(dbc dbctx.Context, requestID uuid.UUID) (*types.GenerationJob, error) {
	transaction := dbc.DB(r.db)
	if requestID == uuid.Nil {
		return nil, nil
	}
	var job types.GenerationJob
	err := transaction.WithContext(dbc.Context()).
		Where("request_id = ?", requestID).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *generationJobRepo) GetLatestActiveForUser(dbc dbctx.Context, userID uuid.UUID, createdAfter time.Time) (*types.GenerationJob, error) {
	transaction := dbc.DB(r.db)
	if userID == uuid.Nil {
		return nil, nil
	}
	var job types.GenerationJob
	err := transaction.WithContext(dbc.Context()).
		Where("user_id = ? AND status IN ? AND created_at > ?",
			userID,
			[]string{types.GenerationStatusPending, types.GenerationStatusInProgress},
			createdAfter,
		).
		Order("created_at DESC").
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

// UpdateFieldsIfStatus applies updates in a single UPDATE guarded by the job's
// current status. It reports whether a row changed.
func (r *generationJobRepo) UpdateFieldsIfStatus(dbc dbctx.Context, requestID uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error) {
	transaction := dbc.DB(r.db)
	if requestID == uuid.Nil || len(allowedStatuses) == 0 {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}

	q := transaction.WithContext(dbc.Context()).
		Model(&types.GenerationJob{}).
		Where("request_id = ?", requestID)
	if len(allowedStatuses) == 1 {
		q = q.Where("status = ?", allowedStatuses[0])
	} else {
		q = q.Where("status IN ?", allowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClaimNextPending hands out the oldest unclaimed pending job. The claim is an
// optimistic compare-and-set on claimed_at, so concurrent workers never share a job.
func (r *generationJobRepo) ClaimNextPending(dbc dbctx.Context, createdAfter time.Time) (*types.GenerationJob, error) {
	transaction := dbc.DB(r.db)
	ctx := dbc.Context()

	var candidates []*types.GenerationJob
	err := transaction.WithContext(ctx).
		Where("status = ? AND claimed_at IS NULL AND created_at > ?", types.GenerationStatusPending, createdAfter).
		Order("created_at ASC").
		Limit(5).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		now := time.Now().UTC()
		res := transaction.WithContext(ctx).
			Model(&types.GenerationJob{}).
			Where("id = ? AND claimed_at IS NULL", c.ID).
			Updates(map[string]interface{}{
				"claimed_at": now,
				"updated_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		c.ClaimedAt = &now
		c.UpdatedAt = now
		return c, nil
	}
	return nil, nil
}

func (r *generationJobRepo) ReleaseClaim(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.DB(r.db)
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Context()).
		Model(&types.GenerationJob{}).
		Where("id = ? AND status = ?", id, types.GenerationStatusPending).
		Updates(map[string]interface{}{
			"claimed_at": nil,
			"updated_at": time.Now().UTC(),
		}).Error
}
