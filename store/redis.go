package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/unistay/offlinecache"
)

// Redis is a Redis-backed implementation of offlinecache.Stores. Each named
// store is a hash keyed by request identity; store names are tracked in a
// registry set so they can be enumerated and dropped as a unit.
type Redis struct {
	client redis.Cmdable
	prefix string
}

// NewRedis creates a Redis store backend. The prefix namespaces every key so
// multiple applications can share an instance.
func NewRedis(client redis.Cmdable, prefix string) *Redis {
	if prefix == "" {
		prefix = "offlinecache"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) registryKey() string {
	return r.prefix + ":stores"
}

func (r *Redis) storeKey(name string) string {
	return r.prefix + ":store:" + name
}

// Open registers the named store and returns a handle to it
func (r *Redis) Open(ctx context.Context, name string) (offlinecache.Store, error) {
	if err := r.client.SAdd(ctx, r.registryKey(), name).Err(); err != nil {
		return nil, fmt.Errorf("register store %s: %w", name, err)
	}
	return &redisStore{backend: r, name: name}, nil
}

// Names lists all registered store names
func (r *Redis) Names(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, r.registryKey()).Result()
}

// Drop removes the named store, all of its entries, and its registry record
func (r *Redis) Drop(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, r.storeKey(name)).Err(); err != nil {
		return err
	}
	return r.client.SRem(ctx, r.registryKey(), name).Err()
}

type redisStore struct {
	backend *Redis
	name    string
}

// Get retrieves a cached response from the store's hash
func (s *redisStore) Get(ctx context.Context, id string) (*offlinecache.CachedResponse, error) {
	data, err := s.backend.client.HGet(ctx, s.backend.storeKey(s.name), id).Bytes()
	if err == redis.Nil {
		return nil, offlinecache.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var response offlinecache.CachedResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Put stores a response in the store's hash, replacing any existing entry
func (s *redisStore) Put(ctx context.Context, id string, response *offlinecache.CachedResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return s.backend.client.HSet(ctx, s.backend.storeKey(s.name), id, data).Err()
}

// Delete removes a single entry from the store's hash
func (s *redisStore) Delete(ctx context.Context, id string) error {
	return s.backend.client.HDel(ctx, s.backend.storeKey(s.name), id).Err()
}
