package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot represents a point-in-time metric value
type Snapshot struct {
	AppID      string            `json:"app_id,omitempty"`
	MetricType string            `json:"metric_type"`
	Value      int64             `json:"value"`
	Labels     map[string]string `json:"labels,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// AppMetrics tracks per-App runtime counters
type AppMetrics struct {
	InstallTime  int64     `json:"install_time_ms"`
	RegisteredAt time.Time `json:"registered_at"`
	Status       string    `json:"status"`

	hookCalls     atomic.Int64
	hookFailures  atomic.Int64
	dispatches    atomic.Int64
	dispatchFails atomic.Int64
	mounts        atomic.Int64
	unmounts      atomic.Int64
}

// Storage defines metric storage interface
type Storage interface {
	Store(snapshot *Snapshot) error
	StoreBatch(snapshots []*Snapshot) error
	Query(appID string, start, end time.Time) ([]*Snapshot, error)
	QueryLatest(appID string, limit int) ([]*Snapshot, error)
	Cleanup(before time.Time) error
	GetStats() map[string]any
}
