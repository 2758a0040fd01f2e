// Package jobguard provides named mutual exclusion for batch jobs, either
// in-process or across instances through Redis.
package jobguard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another run holds the lock.
var ErrHeld = errors.New("job lock is held by another run")

// Guard acquires named locks. The returned release func is safe to call once.
type Guard interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
	Ping(ctx context.Context) error
}

// ─── Local ──────────────────────────────────────────────────────────────────

// Local is an in-process guard for single-instance deployments.
type Local struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocal creates an in-process guard.
func NewLocal() *Local {
	return &Local{held: make(map[string]bool)}
}

// Acquire takes the named lock or fails with ErrHeld.
func (l *Local) Acquire(_ context.Context, name string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, ErrHeld
	}
	l.held[name] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, nil
}

// Ping always succeeds.
func (l *Local) Ping(context.Context) error { return nil }

// ─── Redis ──────────────────────────────────────────────────────────────────

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis is a SET NX PX lock shared by every instance using the same server.
// The TTL bounds how long a crashed holder blocks the job.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis guard. ttl <= 0 defaults to 30 minutes.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Redis{client: client, prefix: "ganbari:job:", ttl: ttl}
}

// Acquire takes the named lock or fails with ErrHeld.
func (r *Redis) Acquire(ctx context.Context, name string) (func(), error) {
	key := r.prefix + name
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, r.client, []string{key}, token).Err()
		})
	}, nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
