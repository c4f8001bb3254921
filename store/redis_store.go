package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore keeps chapters as plain string keys plus a per-tender index set.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithTTL sets the expiration for stored chapters.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a store with its own client.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(rdb, opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "bidgen:chapter:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(tender, title string) string {
	return s.prefix + tender + ":" + title
}

func (s *RedisStore) indexKey(tender string) string {
	return s.prefix + tender + ":index"
}

func (s *RedisStore) Save(ctx context.Context, tender, title, content string) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(tender, title), content, s.ttl)
	pipe.SAdd(ctx, s.indexKey(tender), title)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.indexKey(tender), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save chapter %q to redis: %w", title, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, tender, title string) (string, error) {
	val, err := s.client.Get(ctx, s.key(tender, title)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", fmt.Errorf("chapter %q: %w", title, ErrNotFound)
		}
		return "", fmt.Errorf("load chapter %q from redis: %w", title, err)
	}
	return val, nil
}

func (s *RedisStore) List(ctx context.Context, tender string) ([]string, error) {
	titles, err := s.client.SMembers(ctx, s.indexKey(tender)).Result()
	if err != nil {
		return nil, fmt.Errorf("list chapters from redis: %w", err)
	}
	sort.Strings(titles)
	return titles, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
