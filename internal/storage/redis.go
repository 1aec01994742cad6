package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "classroom:"

// RedisStore namespaces every key under a prefix so ListKeys only sees keys
// written through it.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(ctx context.Context, addr, password, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisStoreWithClient(client, prefix), nil
}

func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.redisKey(key), value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.redisKey(key)).Err()
}

func (s *RedisStore) ListKeys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0)
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
