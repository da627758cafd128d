package worker

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"sentimentreality/internal/pkg/utils"
)

// Locker hands out short-lived advisory locks keyed by name. Acquire returns
// a token that must be passed back to Release; ok is false when the key is held.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
	prefix string
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := utils.GenerateUUID()
	ok, err := l.client.SetNX(ctx, l.prefix+":"+key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *redisLocker) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, token).Err()
}

type memoryLock struct {
	token   string
	expires time.Time
}

type memoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	now   func() time.Time
}

// NewMemoryLocker returns a process-local Locker.
func NewMemoryLocker() Locker {
	return &memoryLocker{locks: make(map[string]memoryLock), now: time.Now}
}

func (l *memoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.locks[key]; ok && held.expires.After(now) {
		return "", false, nil
	}

	token := utils.GenerateUUID()
	l.locks[key] = memoryLock{token: token, expires: now.Add(ttl)}

	for k, held := range l.locks {
		if !held.expires.After(now) {
			delete(l.locks, k)
		}
	}
	return token, true, nil
}

func (l *memoryLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.locks[key]; ok && held.token == token {
		delete(l.locks, key)
	}
	return nil
}

// NewLocker builds a Redis locker shared by every worker process and falls
// back to an in-memory one when Redis is not configured or unreachable.
func NewLocker(addr, pass string, db int) (Locker, error) {
	if addr == "" {
		return NewMemoryLocker(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return NewMemoryLocker(), err
	}

	return &redisLocker{
		client: client,
		prefix: "sentimentreality:lock",
	}, nil
}
