package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marcelsud/vendor-relay/idempotency/redis"
	"github.com/marcelsud/vendor-relay/targets"
)

const instanceNamespace = "instance"

// TargetLister provides the configured relay targets
type TargetLister interface {
	List() []*targets.Target
}

// RedisCollector implements the Collector interface for the Redis ledger
type RedisCollector struct {
	store   *redis.Store
	targets TargetLister
}

// NewRedisCollector creates a new Redis metrics collector
func NewRedisCollector(store *redis.Store, lister TargetLister) *RedisCollector {
	return &RedisCollector{
		store:   store,
		targets: lister,
	}
}

// Collect gathers all metrics from Redis
func (c *RedisCollector) Collect(ctx context.Context) (Snapshot, error) {
	keys, err := c.GetLedgerKeyCounts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting ledger key counts: %w", err)
	}

	instances, err := c.GetActiveInstances(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting active instances: %w", err)
	}

	count, err := c.GetTargetCount(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting target count: %w", err)
	}

	return Snapshot{
		LedgerKeys: keys,
		Instances:  instances,
		Targets:    count,
		Timestamp:  time.Now(),
	}, nil
}

// GetLedgerKeyCounts scans the ledger prefix and counts keys by namespace
func (c *RedisCollector) GetLedgerKeyCounts(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{
		"msg":      0,
		"dispatch": 0,
	}

	prefix := c.store.Prefix()
	client := c.store.GetClient()

	var cursor uint64
	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning ledger keys: %w", err)
		}

		for _, key := range keys {
			namespace, _, found := strings.Cut(strings.TrimPrefix(key, prefix), ":")
			if !found || namespace == instanceNamespace {
				continue
			}
			counts[namespace]++
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return counts, nil
}

// GetActiveInstances returns scheduler callers with a live heartbeat
func (c *RedisCollector) GetActiveInstances(ctx context.Context) (map[string][]InstanceInfo, error) {
	byRole, err := c.store.GetActiveInstances(ctx)
	if err != nil {
		return nil, err
	}

	instances := make(map[string][]InstanceInfo, len(byRole))
	for role, heartbeats := range byRole {
		for _, hb := range heartbeats {
			instances[role] = append(instances[role], InstanceInfo{
				InstanceID:    hb.InstanceID,
				Role:          hb.Role,
				Status:        hb.Status,
				LastHeartbeat: hb.LastHeartbeat,
			})
		}
	}

	return instances, nil
}

// GetTargetCount returns the number of configured relay targets
func (c *RedisCollector) GetTargetCount(_ context.Context) (int64, error) {
	if c.targets == nil {
		return 0, nil
	}
	return int64(len(c.targets.List())), nil
}
