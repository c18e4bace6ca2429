package isr

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries in Redis under a key prefix.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisPrefix sets the key prefix. Default: "vango:isr:".
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithRedisTTL lets Redis expire entries after ttl.
func WithRedisTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore creates a RedisStore using client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "vango:isr:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(route string) string {
	return s.prefix + route
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, route string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.key(route)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(route, data)
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, e *Entry) error {
	return s.client.Set(ctx, s.key(e.Route), encodeEntry(e), s.ttl).Err()
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, route string) error {
	return s.client.Del(ctx, s.key(route)).Err()
}

// Clear implements Store. Keys are found with SCAN, so other keys in the
// same database are left alone.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}
