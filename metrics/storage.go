package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryStorage stores metric snapshots in memory
type MemoryStorage struct {
	data map[string][]*Snapshot
	mu   sync.RWMutex
}

// NewMemoryStorage creates a new memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data: make(map[string][]*Snapshot),
	}
}

func (m *MemoryStorage) Store(snapshot *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[snapshot.AppID] = append(m.data[snapshot.AppID], snapshot)
	return nil
}

func (m *MemoryStorage) StoreBatch(snapshots []*Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, snapshot := range snapshots {
		m.data[snapshot.AppID] = append(m.data[snapshot.AppID], snapshot)
	}
	return nil
}

func (m *MemoryStorage) Query(appID string, start, end time.Time) ([]*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshots, exists := m.data[appID]
	if !exists {
		return []*Snapshot{}, nil
	}

	var result []*Snapshot
	for _, snapshot := range snapshots {
		if snapshot.Timestamp.After(start) && snapshot.Timestamp.Before(end) {
			result = append(result, snapshot)
		}
	}
	return result, nil
}

func (m *MemoryStorage) QueryLatest(appID string, limit int) ([]*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshots, exists := m.data[appID]
	if !exists {
		return []*Snapshot{}, nil
	}

	start := len(snapshots) - limit
	if start < 0 {
		start = 0
	}
	return snapshots[start:], nil
}

func (m *MemoryStorage) Cleanup(before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for appID, snapshots := range m.data {
		var filtered []*Snapshot
		for _, snapshot := range snapshots {
			if snapshot.Timestamp.After(before) {
				filtered = append(filtered, snapshot)
			}
		}
		m.data[appID] = filtered
	}
	return nil
}

func (m *MemoryStorage) GetStats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	apps := make(map[string]int)
	for appID, snapshots := range m.data {
		apps[appID] = len(snapshots)
		total += len(snapshots)
	}

	return map[string]any{
		"type":  "memory",
		"total": total,
		"apps":  apps,
	}
}

// RedisStorage stores metric snapshots in Redis sorted sets
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
	retention time.Duration
}

// NewRedisStorage creates a new Redis storage
func NewRedisStorage(client *redis.Client, keyPrefix string, retention time.Duration) *RedisStorage {
	return &RedisStorage{
		client:    client,
		keyPrefix: keyPrefix,
		retention: retention,
	}
}

func (r *RedisStorage) key(appID string) string {
	return fmt.Sprintf("%s:metrics:%s", r.keyPrefix, appID)
}

func (r *RedisStorage) Store(snapshot *Snapshot) error {
	return r.StoreBatch([]*Snapshot{snapshot})
}

func (r *RedisStorage) StoreBatch(snapshots []*Snapshot) error {
	ctx := context.Background()
	pipe := r.client.Pipeline()

	for _, snapshot := range snapshots {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		key := r.key(snapshot.AppID)
		score := float64(snapshot.Timestamp.Unix())
		pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: string(data)})
		pipe.Expire(ctx, key, r.retention)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStorage) Query(appID string, start, end time.Time) ([]*Snapshot, error) {
	ctx := context.Background()

	members, err := r.client.ZRangeByScore(ctx, r.key(appID), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", start.Unix()),
		Max: fmt.Sprintf("%d", end.Unix()),
	}).Result()
	if err != nil {
		return nil, err
	}

	return unmarshalSnapshots(members)
}

func (r *RedisStorage) QueryLatest(appID string, limit int) ([]*Snapshot, error) {
	ctx := context.Background()

	members, err := r.client.ZRevRange(ctx, r.key(appID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	snapshots, err := unmarshalSnapshots(members)
	if err != nil {
		return nil, err
	}

	// ZRevRange returns newest first, restore chronological order
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}
	return snapshots, nil
}

func (r *RedisStorage) Cleanup(before time.Time) error {
	ctx := context.Background()

	iter := r.client.Scan(ctx, 0, r.keyPrefix+":metrics:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.ZRemRangeByScore(ctx, iter.Val(), "0", fmt.Sprintf("%d", before.Unix())).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *RedisStorage) GetStats() map[string]any {
	ctx := context.Background()

	total := int64(0)
	keys := 0
	iter := r.client.Scan(ctx, 0, r.keyPrefix+":metrics:*", 0).Iterator()
	for iter.Next(ctx) {
		keys++
		if count, err := r.client.ZCard(ctx, iter.Val()).Result(); err == nil {
			total += count
		}
	}

	return map[string]any{
		"type":       "redis",
		"total":      total,
		"keys":       keys,
		"key_prefix": r.keyPrefix,
		"retention":  r.retention.String(),
	}
}

func unmarshalSnapshots(members []string) ([]*Snapshot, error) {
	snapshots := make([]*Snapshot, 0, len(members))
	for _, member := range members {
		var snapshot Snapshot
		if err := json.Unmarshal([]byte(member), &snapshot); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, &snapshot)
	}
	return snapshots, nil
}
