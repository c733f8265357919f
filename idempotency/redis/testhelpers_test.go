//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/marcelsud/vendor-relay/idempotency/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

/* Test helpers for Redis integration tests
 * Following the pattern from: https://eltonminetto.dev/post/2024-02-15-using-test-helpers/
 */

// RedisContainer holds the Redis testcontainer and connection details
type RedisContainer struct {
	Container *testcontainersredis.RedisContainer
	Addr      string
}

// SetupRedisContainer creates and starts a Redis testcontainer
func SetupRedisContainer(t *testing.T, ctx context.Context) (*RedisContainer, func()) {
	t.Helper()

	redisContainer, err := testcontainersredis.Run(ctx,
		"redis:7-alpine",
		testcontainersredis.WithSnapshotting(10, 1),
		testcontainersredis.WithLogLevel(testcontainersredis.LogLevelVerbose),
	)
	require.NoError(t, err, "failed to start Redis container")

	addr, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err, "failed to get Redis connection string")

	// Remove redis:// prefix if present
	if len(addr) > 8 && addr[:8] == "redis://" {
		addr = addr[8:]
	}

	rc := &RedisContainer{
		Container: redisContainer,
		Addr:      addr,
	}

	cleanup := func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	}

	return rc, cleanup
}

// CreateTestStore creates a ledger store connected to the test container
func CreateTestStore(t *testing.T, addr string) *redis.Store {
	t.Helper()

	store, err := redis.NewStore(addr, "", 0, "it:")
	require.NoError(t, err, "failed to create Redis store")

	return store
}

// GenerateMessageID returns a unique provider-like message id
func GenerateMessageID(t *testing.T, index int) string {
	t.Helper()
	return fmt.Sprintf("wamid.TEST%d_%d", index, time.Now().UnixNano())
}

// GetKeyTTL returns the TTL of a raw Redis key in seconds, -1 for no expiry and -2 for a missing key
func GetKeyTTL(t *testing.T, addr string, key string) int64 {
	t.Helper()

	client := createRedisClient(addr)
	defer client.Close()

	ttl, err := client.TTL(context.Background(), key).Result()
	require.NoError(t, err)

	if ttl < 0 {
		return int64(ttl)
	}
	return int64(ttl.Seconds())
}

// KeyExists checks if a raw Redis key exists
func KeyExists(t *testing.T, addr string, key string) bool {
	t.Helper()

	client := createRedisClient(addr)
	defer client.Close()

	exists, err := client.Exists(context.Background(), key).Result()
	require.NoError(t, err)

	return exists > 0
}

func createRedisClient(addr string) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})
}
