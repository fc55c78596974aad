package ramp

import (
	"context"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

// Release and refresh only touch the key while it still holds our token.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (ILease, error) {
	token, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	fullKey := l.prefix + key
	ok, err := l.client.SetNX(ctx, fullKey, token.String(), ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionBusy
	}
	return &redisLease{client: l.client, key: fullKey, token: token.String(), ttl: ttl}, nil
}

type redisLease struct {
	client redis.UniversalClient
	key    string
	token  string
	ttl    time.Duration
}

func (l *redisLease) Refresh(ctx context.Context) error {
	n, err := refreshScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionBusy
	}
	return nil
}

func (l *redisLease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}

// MemoryLocker is the single-process ILocker.
type MemoryLocker struct {
	mu     sync.Mutex
	clock  clock.Clock
	leases map[string]memoryEntry
}

type memoryEntry struct {
	token   string
	expires time.Time
}

func NewMemoryLocker(clk clock.Clock) *MemoryLocker {
	return &MemoryLocker{clock: clk, leases: map[string]memoryEntry{}}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (ILease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if entry, ok := l.leases[key]; ok && now.Before(entry.expires) {
		return nil, ErrSessionBusy
	}
	token, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	l.leases[key] = memoryEntry{token: token.String(), expires: now.Add(ttl)}
	return &memoryLease{locker: l, key: key, token: token.String(), ttl: ttl}, nil
}

type memoryLease struct {
	locker *MemoryLocker
	key    string
	token  string
	ttl    time.Duration
}

func (l *memoryLease) Refresh(_ context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	entry, ok := l.locker.leases[l.key]
	if !ok || entry.token != l.token {
		return ErrSessionBusy
	}
	entry.expires = l.locker.clock.Now().Add(l.ttl)
	l.locker.leases[l.key] = entry
	return nil
}

func (l *memoryLease) Release(_ context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	if entry, ok := l.locker.leases[l.key]; ok && entry.token == l.token {
		delete(l.locker.leases, l.key)
	}
	return nil
}
