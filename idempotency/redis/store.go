package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marcelsud/vendor-relay/idempotency"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of idempotency.Store
 * Uses SET NX so check-and-mark is a single atomic command, visible to every
 * process sharing the instance (API server, watchdog, CLI).
 * Marker value is the RFC3339Nano time of the mark.
 */

const DefaultPrefix = "ledger:"

type Store struct {
	client *redis.Client
	prefix string
}

var _ idempotency.Store = (*Store)(nil)

// NewStore connects to Redis and checks the connection
func NewStore(addr, password string, db int, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return NewStoreFromClient(client, prefix), nil
}

// NewStoreFromClient wraps an existing client without pinging it
func NewStoreFromClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
	}
}

func (s *Store) CheckAndMark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, idempotency.ErrEmptyKey
	}
	if ttl < 0 {
		ttl = 0
	}

	// ttl 0 stores the key without expiration
	ok, err := s.client.SetNX(ctx, s.key(key), time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("marking key %s: %w", key, err)
	}

	return !ok, nil
}

// TTL returns the remaining ttl of key; -1 means no expiration
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("getting ttl of %s: %w", key, err)
	}
	return ttl, nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (s *Store) GetClient() *redis.Client {
	return s.client
}

// Prefix returns the namespace prepended to every key
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key(key string) string {
	return s.prefix + key
}
