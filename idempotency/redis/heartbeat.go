package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// heartbeatTTL: instances beat every scheduler tick, so a few missed ticks drop them
const heartbeatTTL = 15 * time.Minute

// InstanceHeartbeat represents the heartbeat of a scheduler caller
// (the primary API process or a watchdog)
type InstanceHeartbeat struct {
	InstanceID    string    `json:"instance_id"`
	Role          string    `json:"role"`   // "primary", "watchdog"
	Status        string    `json:"status"` // "idle", "ticking"
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// SetInstanceHeartbeat stores or updates an instance heartbeat.
// Instances that stop beating expire after heartbeatTTL.
func (s *Store) SetInstanceHeartbeat(ctx context.Context, role, instanceID, status string) error {
	key := s.heartbeatKey(role, instanceID)

	heartbeat := InstanceHeartbeat{
		InstanceID:    instanceID,
		Role:          role,
		Status:        status,
		LastHeartbeat: time.Now().UTC(),
	}

	data, err := json.Marshal(heartbeat)
	if err != nil {
		return fmt.Errorf("marshaling heartbeat: %w", err)
	}

	err = s.client.Set(ctx, key, data, heartbeatTTL).Err()
	if err != nil {
		return fmt.Errorf("setting heartbeat: %w", err)
	}

	return nil
}

// GetActiveInstances retrieves all live instances grouped by role
func (s *Store) GetActiveInstances(ctx context.Context) (map[string][]InstanceHeartbeat, error) {
	pattern := s.prefix + "instance:*"
	byRole := make(map[string][]InstanceHeartbeat)

	var cursor uint64
	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning instance keys: %w", err)
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if err == redis.Nil {
				// Key expired between scan and get
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("getting instance heartbeat: %w", err)
			}

			var heartbeat InstanceHeartbeat
			if err := json.Unmarshal([]byte(data), &heartbeat); err != nil {
				continue
			}

			byRole[heartbeat.Role] = append(byRole[heartbeat.Role], heartbeat)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return byRole, nil
}

// Heartbeat binds a role and instance id so callers only report a status
type Heartbeat struct {
	Store      *Store
	Role       string
	InstanceID string
}

func (h Heartbeat) Beat(ctx context.Context, status string) error {
	return h.Store.SetInstanceHeartbeat(ctx, h.Role, h.InstanceID, status)
}

func (s *Store) heartbeatKey(role, instanceID string) string {
	return fmt.Sprintf("%sinstance:%s:%s", s.prefix, role, instanceID)
}
