package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos"
	"github.com/yungbote/cyclecoach-backend/internal/data/repos/testutil"
)

type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
	down bool
}

func newMemoryKV() *memoryKV { return &memoryKV{data: map[string]string{}} }

func (m *memoryKV) Get(ctx context.Context, key string) *goredis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return goredis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := m.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (m *memoryKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return goredis.NewStatusResult("OK", nil)
}

func (m *memoryKV) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func TestActivePlanCacheReadThrough(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	profiles := repos.NewUserProfileRepo(db, log)
	kv := newMemoryKV()
	cache := NewRedisActivePlanCache(log, kv, NewProfileActivePlanReader(db, profiles), time.Minute)

	userID := uuid.New()
	got, err := cache.ActivePlanID(ctx, userID)
	if err != nil || got != nil {
		t.Fatalf("no profile: got %v err=%v", got, err)
	}

	planID := uuid.New()
	testutil.SeedProfile(t, ctx, db, userID, &planID, 1)

	// The negative entry is served until invalidated: this is the projection lag
	// the completion verifier polls through.
	got, err = cache.ActivePlanID(ctx, userID)
	if err != nil || got != nil {
		t.Fatalf("cached miss: got %v err=%v", got, err)
	}
	if err := cache.Invalidate(ctx, userID); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	got, err = cache.ActivePlanID(ctx, userID)
	if err != nil || got == nil || *got != planID {
		t.Fatalf("after invalidate: got %v err=%v, want %s", got, err, planID)
	}

	kv.down = true
	got, err = cache.ActivePlanID(ctx, userID)
	if err != nil || got == nil || *got != planID {
		t.Fatalf("redis outage should fall through: got %v err=%v", got, err)
	}
}
