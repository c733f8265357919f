package metrics

import (
	"context"
	"time"
)

// Snapshot represents the current state of the relay and scheduler.
type Snapshot struct {
	// LedgerKeys maps a ledger namespace ("msg", "dispatch") to its key count
	LedgerKeys map[string]int64 `json:"ledger_keys"`

	// Instances maps a scheduler role ("primary", "watchdog") to its live instances
	Instances map[string][]InstanceInfo `json:"instances"`

	// Targets is the number of configured relay targets
	Targets int64 `json:"targets"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// InstanceInfo represents a scheduler caller that reported a heartbeat.
type InstanceInfo struct {
	InstanceID    string    `json:"instance_id"`
	Role          string    `json:"role"`
	Status        string    `json:"status"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Collector defines the interface for collecting gauge values.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Snapshot, error)

	// GetLedgerKeyCounts returns the number of ledger keys per namespace
	GetLedgerKeyCounts(ctx context.Context) (map[string]int64, error)

	// GetActiveInstances returns live scheduler callers per role
	GetActiveInstances(ctx context.Context) (map[string][]InstanceInfo, error)

	// GetTargetCount returns the number of configured relay targets
	GetTargetCount(ctx context.Context) (int64, error)
}
