// Package stats publishes a periodic readiness snapshot per worker to
// Redis as a JSON blob under a namespaced, expiring key, so an operator
// (or another process) can see which workers are saturated without
// reaching into the gateway's own memory.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot is one worker's readiness at a point in time.
type Snapshot struct {
	WorkerID        int       `json:"worker_id"`
	ActiveConns     int       `json:"active_connections"`
	LastUpdated     time.Time `json:"last_updated"`
}

const keyTTL = 30 * time.Second

// Publisher writes worker snapshots to Redis under short-lived keys, so a
// worker that stops updating (crashed, wedged) ages out of the view
// automatically instead of leaving stale data behind.
type Publisher struct {
	redis *redis.Client
}

// NewPublisher wraps an existing Redis client.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{redis: client}
}

func key(workerID int) string {
	return fmt.Sprintf("emberd:worker_stats:%d", workerID)
}

// Publish writes snap under its worker's key with a short expiration.
func (p *Publisher) Publish(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("stats: marshal snapshot: %w", err)
	}
	if err := p.redis.Set(ctx, key(snap.WorkerID), data, keyTTL).Err(); err != nil {
		return fmt.Errorf("stats: set snapshot: %w", err)
	}
	return nil
}

// All returns every currently live worker snapshot.
func (p *Publisher) All(ctx context.Context) ([]Snapshot, error) {
	keys, err := p.redis.Keys(ctx, "emberd:worker_stats:*").Result()
	if err != nil {
		return nil, fmt.Errorf("stats: list keys: %w", err)
	}
	var out []Snapshot
	for _, k := range keys {
		data, err := p.redis.Get(ctx, k).Result()
		if err != nil {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}
