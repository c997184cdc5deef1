// Package redisstore implements storage.Store on Redis with
// redis/go-redis/v9, for deployments that share one cache between
// several tutor processes.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/scry-tutor/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Options configures a Store.
type Options struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string

	// TTL is applied to every write. Zero means keys do not expire.
	TTL time.Duration
}

// Store is a Redis-backed storage.Store.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// Open parses the URL, connects and pings the server.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.URL == "" {
		return nil, errors.New("redisstore: url cannot be empty")
	}
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse url: %w", err)
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}

	return New(client, opts.TTL), nil
}

// New wraps an existing client.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redisstore: get: %w", err)
	}
	return v, true, nil
}

// Set implements storage.Store. A server out of memory is reported as
// storage.ErrQuotaExceeded.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		if strings.HasPrefix(err.Error(), "OOM") {
			return fmt.Errorf("%w: %v", storage.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("redisstore: set: %w", err)
	}
	return nil
}

// Remove implements storage.Store.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redisstore: remove: %w", err)
	}
	return nil
}

// Clear removes every key with the given prefix using SCAN.
func (s *Store) Clear(ctx context.Context, prefix string) (int, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redisstore: scan: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redisstore: clear: %w", err)
	}
	return int(n), nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Clearer = (*Store)(nil)
)
