//go:build integration

package webhook

import (
	"context"
	"testing"

	"github.com/marcelsud/vendor-relay/idempotency/redis"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// SetupRedisLedger starts a Redis container and returns a ledger bound to it
func SetupRedisLedger(t *testing.T, ctx context.Context) (*redis.Store, func()) {
	t.Helper()

	container, err := testcontainersredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start Redis container")

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err, "failed to get Redis connection string")
	if len(addr) > 8 && addr[:8] == "redis://" {
		addr = addr[8:]
	}

	store, err := redis.NewStore(addr, "", 0, "it:")
	require.NoError(t, err, "failed to create Redis ledger")

	cleanup := func() {
		_ = store.Close(ctx)
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	}

	return store, cleanup
}
