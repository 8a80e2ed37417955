package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Guard admits at most one checkout per key at a time.
type Guard interface {
	// Acquire holds key for at most ttl and returns the token that releases it. ok is
	// false when key is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release frees key if it is still held with token.
	Release(ctx context.Context, key, token string) error
}

type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]string
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: map[string]string{}}
}

// Acquire ignores ttl: an in-process hold ends with the attempt that took it.
func (g *MemoryGuard) Acquire(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return "", false, nil
	}
	token := uuid.NewString()
	g.held[key] = token
	return token, true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] == token {
		delete(g.held, key)
	}
	return nil
}

// RedisGuard shares the in-flight set between server instances. Keys expire after the
// ttl given to Acquire so a crashed instance cannot hold a session forever.
type RedisGuard struct {
	client *redis.Client
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

const guardKeyPrefix = "checkout:inflight:"

// releaseScript deletes the key only while it still carries the caller's token, so an
// attempt that outlived its ttl cannot free a newer attempt's hold.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, guardKeyPrefix+key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (g *RedisGuard) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, g.client, []string{guardKeyPrefix + key}, token).Err()
}
