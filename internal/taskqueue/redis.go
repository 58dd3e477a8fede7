package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/scituinsk/BE-Smart-Farming/internal/logger"
)

const (
	// dueKey is the sorted set of pending handles, scored by eta.
	dueKey = "taskq:due"
	// taskKeyPrefix prefixes the per-handle payload keys.
	taskKeyPrefix = "taskq:task:"
	// claimBatch is how many due handles one poll claims at most.
	claimBatch = 32
)

// errUnknownTask is reported when a claimed payload names no registered handler.
var errUnknownTask = errors.New("unknown task name")

// RedisQueue is a Redis-backed delayed execution queue. Submissions land in
// a sorted set scored by eta; workers poll for due members and claim each
// one with a ZREM so exactly one worker across all processes executes it.
type RedisQueue struct {
	client *redis.Client

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRedisQueue creates a queue on the provided Redis client.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client:   client,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a task name to its handler. Not safe to call concurrently
// with running workers; register everything before RunWorkers.
func (q *RedisQueue) Register(name string, fn HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[name] = fn
}

// Submit stores the task and schedules it at eta. The returned handle can
// cancel the execution until a worker has claimed it.
func (q *RedisQueue) Submit(ctx context.Context, name string, args []string, eta time.Time) (Handle, error) {
	task := Task{
		Handle: Handle(uuid.NewString()),
		Name:   name,
		Args:   args,
		ETA:    eta,
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("encode task: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, taskKeyPrefix+string(task.Handle), payload, 0)
	pipe.ZAdd(ctx, dueKey, redis.Z{Score: float64(eta.Unix()), Member: string(task.Handle)})

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("submit task: %w", err)
	}

	return task.Handle, nil
}

// Cancel withdraws the execution. Unknown or already-claimed handles are a no-op.
func (q *RedisQueue) Cancel(ctx context.Context, handle Handle) error {
	if handle == "" {
		return nil
	}

	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, dueKey, string(handle))
	pipe.Del(ctx, taskKeyPrefix+string(handle))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cancel task: %w", err)
	}

	return nil
}

// RunWorkers polls for due tasks every poll interval and executes them on a
// pool of workers goroutines. It blocks until the context is canceled.
func (q *RedisQueue) RunWorkers(ctx context.Context, workers int, poll time.Duration) {
	tasks := make(chan Task)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			workerCtx := logger.WithKV(ctx, "queue_worker", n)
			for task := range tasks {
				q.execute(workerCtx, task)
			}
		}(i)
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(tasks)
			wg.Wait()

			return
		case <-ticker.C:
			q.claimDue(ctx, tasks)
		}
	}
}

// claimDue moves every due task it can claim onto the worker channel.
func (q *RedisQueue) claimDue(ctx context.Context, tasks chan<- Task) {
	now := strconv.FormatInt(time.Now().Unix(), 10)

	handles, err := q.client.ZRangeByScore(ctx, dueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: claimBatch,
	}).Result()
	if err != nil {
		logger.WarnKV(ctx, "Task queue poll failed", "error", err)

		return
	}

	for _, handle := range handles {
		// ZREM is the claim: whoever removes the member owns the task.
		removed, err := q.client.ZRem(ctx, dueKey, handle).Result()
		if err != nil || removed == 0 {
			continue
		}

		payload, err := q.client.GetDel(ctx, taskKeyPrefix+handle).Bytes()
		if err != nil {
			logger.WarnKV(ctx, "Claimed task has no payload", "handle", handle, "error", err)

			continue
		}

		var task Task
		if err := json.Unmarshal(payload, &task); err != nil {
			logger.WarnKV(ctx, "Claimed task payload is malformed", "handle", handle, "error", err)

			continue
		}

		select {
		case tasks <- task:
		case <-ctx.Done():
			return
		}
	}
}

// execute dispatches one claimed task to its registered handler.
func (q *RedisQueue) execute(ctx context.Context, task Task) {
	q.mu.RLock()
	fn, ok := q.handlers[task.Name]
	q.mu.RUnlock()

	if !ok {
		logger.WarnKV(ctx, "Dropping task without handler",
			"task", task.Name, "handle", task.Handle, "error", errUnknownTask)

		return
	}

	if err := fn(ctx, task.Args); err != nil {
		logger.ErrorKV(ctx, "Task execution failed",
			"task", task.Name, "handle", task.Handle, "error", err)
	}
}
