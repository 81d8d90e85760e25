package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const purgeScanCount = 100

// RedisOptions selects the Redis server backing the store.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
}

func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// RedisStore keeps entries as plain Redis strings with a native expiry.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Purge deletes every key starting with prefix and reports how many went away.
func (s *RedisStore) Purge(ctx context.Context, prefix string) (int, error) {
	var (
		cursor uint64
		purged int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", purgeScanCount).Result()
		if err != nil {
			return purged, fmt.Errorf("scan %q: %w", prefix, err)
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return purged, fmt.Errorf("delete %d keys: %w", len(keys), err)
			}
			purged += int(n)
		}
		cursor = next
		if cursor == 0 {
			return purged, nil
		}
	}
}

// Client exposes the underlying connection pool for helpers that share it.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
