// Package lock provides short-lived exclusive leases on top of Redis.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Unlock when the lease expired or was taken over.
var ErrNotHeld = errors.New("lock: lease not held")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker stores leases under prefix+name.
func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

// Lease is a held lock. It expires on its own after the TTL it was taken with.
type Lease struct {
	client *redis.Client
	key    string
	token  string
}

// TryLock takes the lease for name without waiting. ok is false when someone
// else holds it.
func (l *RedisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (*Lease, bool, error) {
	key := l.prefix + name
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Lease{client: l.client, key: key, token: token}, true, nil
}

// Unlock releases the lease if it is still ours.
func (l *Lease) Unlock(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}
