package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos"
	"github.com/yungbote/cyclecoach-backend/internal/platform/dbctx"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

// ActivePlanReader reads the user's "current active artifact" projection.
type ActivePlanReader interface {
	ActivePlanID(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
}

// ActivePlanCache is a read-through projection that writers invalidate after
// switching a user's active plan.
type ActivePlanCache interface {
	ActivePlanReader
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

type profileActivePlanReader struct {
	db       *gorm.DB
	profiles repos.UserProfileRepo
}

func NewProfileActivePlanReader(db *gorm.DB, profiles repos.UserProfileRepo) ActivePlanReader {
	return &profileActivePlanReader{db: db, profiles: profiles}
}

func (r *profileActivePlanReader) ActivePlanID(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	return r.profiles.GetActivePlanID(dbctx.Context{Ctx: ctx, Tx: r.db}, userID)
}

// redisKV is the subset of the redis client the cache touches.
type redisKV interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

const noActivePlan = "none"

type redisActivePlanCache struct {
	log    *logger.Logger
	rdb    redisKV
	next   ActivePlanReader
	ttl    time.Duration
	prefix string
}

func NewRedisActivePlanCache(baseLog *logger.Logger, rdb redisKV, next ActivePlanReader, ttl time.Duration) ActivePlanCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisActivePlanCache{
		log:    baseLog.With("service", "ActivePlanCache"),
		rdb:    rdb,
		next:   next,
		ttl:    ttl,
		prefix: "cyclecoach:active_plan:",
	}
}

func (c *redisActivePlanCache) key(userID uuid.UUID) string {
	return c.prefix + userID.String()
}

func (c *redisActivePlanCache) ActivePlanID(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	if c.rdb == nil {
		return c.next.ActivePlanID(ctx, userID)
	}
	raw, err := c.rdb.Get(ctx, c.key(userID)).Result()
	switch {
	case err == nil:
		raw = strings.TrimSpace(raw)
		if raw == noActivePlan {
			return nil, nil
		}
		if id, perr := uuid.Parse(raw); perr == nil {
			return &id, nil
		}
		c.log.Warn("Discarding malformed cached plan id", "user_id", userID)
	case errors.Is(err, goredis.Nil):
	default:
		// Cache outage degrades to the source of truth.
		c.log.Warn("Active plan cache read failed", "user_id", userID, "error", err)
		return c.next.ActivePlanID(ctx, userID)
	}

	id, err := c.next.ActivePlanID(ctx, userID)
	if err != nil {
		return nil, err
	}
	val := noActivePlan
	if id != nil {
		val = id.String()
	}
	if serr := c.rdb.Set(ctx, c.key(userID), val, c.ttl).Err(); serr != nil {
		c.log.Warn("Active plan cache write failed", "user_id", userID, "error", serr)
	}
	return id, nil
}

func (c *redisActivePlanCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate active plan cache: %w", err)
	}
	return nil
}

type uncachedActivePlan struct{ ActivePlanReader }

// NewUncachedActivePlan wraps a reader when no redis is configured.
func NewUncachedActivePlan(r ActivePlanReader) ActivePlanCache {
	return uncachedActivePlan{r}
}

func (uncachedActivePlan) Invalidate(ctx context.Context, userID uuid.UUID) error { return nil }
