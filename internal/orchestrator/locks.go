package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"voiceagent-platform/pkg/utils"
)

// CallLocker serializes turn processing per call. Acquire fails fast with
// ErrTurnInProgress when the call's lock is already held; it never queues.
type CallLocker interface {
	Acquire(ctx context.Context, callID string) (release func(), err error)
}

// MemoryLocker serializes turns within one process. Suitable for tests and
// single-instance deployments.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) Acquire(ctx context.Context, callID string) (func(), error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[callID]; taken {
		return nil, ErrTurnInProgress
	}
	l.held[callID] = struct{}{}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, callID)
	}, nil
}

// RedisLocker serializes turns across API instances using a TTL'd
// single-flight lock per call. The TTL bounds how long a crashed holder can
// wedge a call; it must exceed the worst-case turn duration.
type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, callID string) (func(), error) {
	key := "call_lock:" + callID
	token := uuid.NewString()

	acquired, err := utils.AcquireCallLock(ctx, l.rdb, key, token, l.ttl)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrTurnInProgress
	}
	return func() {
		// Release on a fresh context: the turn's context may be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = utils.ReleaseCallLock(ctx, l.rdb, key, token)
	}, nil
}
