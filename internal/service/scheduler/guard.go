package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scituinsk/BE-Smart-Farming/internal/logger"
)

// FireGuard decides whether a fire attempt for an alarm in a given due
// minute may proceed. The scheduled execution path and the due-alarm sweep
// both consult it, so an alarm observed due by both within the same minute
// fires once.
type FireGuard interface {
	TryAcquire(ctx context.Context, alarmID uint, minute time.Time) bool
}

// guardTTL keeps acquired minute keys long enough to cover the whole due
// minute plus clock skew between the two fire paths.
const guardTTL = 2 * time.Minute

// RedisFireGuard implements FireGuard with SETNX on a per-alarm per-minute
// key. When Redis is unreachable the guard fails open: a duplicate control
// message is acceptable (actuation is level-triggered), a silently swallowed
// fire is not.
type RedisFireGuard struct {
	client *redis.Client
}

// NewRedisFireGuard creates a guard on the provided Redis client.
func NewRedisFireGuard(client *redis.Client) *RedisFireGuard {
	return &RedisFireGuard{client: client}
}

// TryAcquire claims the alarm's due minute. Only the first caller wins.
func (g *RedisFireGuard) TryAcquire(ctx context.Context, alarmID uint, minute time.Time) bool {
	key := fmt.Sprintf("alarm:fired:%d:%s", alarmID, minute.Format("2006-01-02T15:04"))

	ok, err := g.client.SetNX(ctx, key, 1, guardTTL).Result()
	if err != nil {
		logger.WarnKV(ctx, "Fire guard unavailable, allowing fire", "alarm_id", alarmID, "error", err)

		return true
	}

	return ok
}

// MemoryFireGuard is an in-process FireGuard for tests and single-node runs
// without Redis.
type MemoryFireGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryFireGuard creates an empty in-process guard.
func NewMemoryFireGuard() *MemoryFireGuard {
	return &MemoryFireGuard{seen: make(map[string]time.Time)}
}

// TryAcquire claims the alarm's due minute, expiring old claims as it goes.
func (g *MemoryFireGuard) TryAcquire(_ context.Context, alarmID uint, minute time.Time) bool {
	key := fmt.Sprintf("%d:%s", alarmID, minute.Format("2006-01-02T15:04"))

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	for k, expiry := range g.seen {
		if now.After(expiry) {
			delete(g.seen, k)
		}
	}

	if _, taken := g.seen[key]; taken {
		return false
	}

	g.seen[key] = now.Add(guardTTL)

	return true
}
