package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/tunbase/apphost/logging/logger"
)

// Collector manages runtime metrics collection with optional storage
type Collector struct {
	mu        sync.RWMutex
	apps      map[string]*AppMetrics
	storage   Storage
	enabled   bool
	startTime time.Time

	batchBuffer []*Snapshot
	batchSize   int
	retention   time.Duration
	flushTicker *time.Ticker
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewCollector creates a new metrics collector. A nil storage disables
// snapshot persistence but keeps in-memory counters.
func NewCollector(storage Storage, enabled bool, flushInterval, retention time.Duration) *Collector {
	c := &Collector{
		apps:      make(map[string]*AppMetrics),
		storage:   storage,
		enabled:   enabled,
		startTime: time.Now(),
		batchSize: 100,
		retention: retention,
		stopChan:  make(chan struct{}),
	}

	if enabled && storage != nil {
		if flushInterval <= 0 {
			flushInterval = 30 * time.Second
		}
		c.flushTicker = time.NewTicker(flushInterval)
		c.wg.Add(1)
		go c.flushRoutine()
	}

	return c
}

// NewCollectorWithMemoryStorage creates a collector with memory storage
func NewCollectorWithMemoryStorage(enabled bool) *Collector {
	var storage Storage
	if enabled {
		storage = NewMemoryStorage()
	}
	return NewCollector(storage, enabled, 30*time.Second, 7*24*time.Hour)
}

// Stop gracefully stops the collector
func (c *Collector) Stop() {
	c.mu.Lock()
	if c.stopChan != nil {
		close(c.stopChan)
		c.stopChan = nil
	}
	if c.flushTicker != nil {
		c.flushTicker.Stop()
	}
	c.mu.Unlock()

	c.flushNow()
	c.wg.Wait()
}

// IsEnabled returns whether metrics collection is enabled
func (c *Collector) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

func (c *Collector) getOrCreateAppMetrics(appID string) *AppMetrics {
	m, exists := c.apps[appID]
	if !exists {
		m = &AppMetrics{RegisteredAt: time.Now()}
		c.apps[appID] = m
	}
	return m
}

// AppRegistered records a successful package registration
func (c *Collector) AppRegistered(appID string, duration time.Duration) {
	if !c.enabled || appID == "" {
		return
	}

	c.mu.Lock()
	m := c.getOrCreateAppMetrics(appID)
	m.InstallTime = duration.Milliseconds()
	m.Status = "active"
	c.mu.Unlock()

	c.storeSnapshot(&Snapshot{
		AppID:      appID,
		MetricType: "install_time",
		Value:      duration.Milliseconds(),
		Timestamp:  time.Now(),
	})
}

// AppUnregistered records a package removal
func (c *Collector) AppUnregistered(appID string) {
	if !c.enabled || appID == "" {
		return
	}

	c.mu.Lock()
	delete(c.apps, appID)
	c.mu.Unlock()

	c.storeSnapshot(&Snapshot{
		AppID:      appID,
		MetricType: "unregister_event",
		Value:      1,
		Timestamp:  time.Now(),
	})
}

// HookInvoked records a single hook invocation
func (c *Collector) HookInvoked(appID, phase string, duration time.Duration, err error) {
	if !c.enabled || appID == "" {
		return
	}

	c.mu.Lock()
	m := c.getOrCreateAppMetrics(appID)
	c.mu.Unlock()

	m.hookCalls.Add(1)
	if err != nil {
		m.hookFailures.Add(1)
	}

	c.storeSnapshot(&Snapshot{
		AppID:      appID,
		MetricType: "hook_invocation",
		Value:      duration.Milliseconds(),
		Labels: map[string]string{
			"phase":   phase,
			"success": fmt.Sprintf("%t", err == nil),
		},
		Timestamp: time.Now(),
	})
}

// DispatchCompleted records a whole tunnel action dispatch
func (c *Collector) DispatchCompleted(appID, action string, success bool, duration time.Duration) {
	if !c.enabled || appID == "" {
		return
	}

	c.mu.Lock()
	m := c.getOrCreateAppMetrics(appID)
	c.mu.Unlock()

	m.dispatches.Add(1)
	if !success {
		m.dispatchFails.Add(1)
	}

	c.storeSnapshot(&Snapshot{
		AppID:      appID,
		MetricType: "dispatch",
		Value:      duration.Milliseconds(),
		Labels: map[string]string{
			"action":  action,
			"success": fmt.Sprintf("%t", success),
		},
		Timestamp: time.Now(),
	})
}

// AdapterMounted records an adapter mount for an App
func (c *Collector) AdapterMounted(appID string) {
	if !c.enabled || appID == "" {
		return
	}

	c.mu.Lock()
	m := c.getOrCreateAppMetrics(appID)
	c.mu.Unlock()

	m.mounts.Add(1)
}

// AdapterUnmounted records an adapter unmount for an App
func (c *Collector) AdapterUnmounted(appID string) {
	if !c.enabled || appID == "" {
		return
	}

	c.mu.Lock()
	m := c.getOrCreateAppMetrics(appID)
	c.mu.Unlock()

	m.unmounts.Add(1)
}

// GetMetrics returns current counters for all Apps
func (c *Collector) GetMetrics() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	apps := make(map[string]any, len(c.apps))
	for appID, m := range c.apps {
		apps[appID] = map[string]any{
			"install_time_ms": m.InstallTime,
			"registered_at":   m.RegisteredAt,
			"status":          m.Status,
			"hook_calls":      m.hookCalls.Load(),
			"hook_failures":   m.hookFailures.Load(),
			"dispatches":      m.dispatches.Load(),
			"dispatch_fails":  m.dispatchFails.Load(),
			"mounts":          m.mounts.Load(),
			"unmounts":        m.unmounts.Load(),
		}
	}

	stats := map[string]any{}
	if c.storage != nil {
		stats = c.storage.GetStats()
	}

	return map[string]any{
		"enabled":        c.enabled,
		"uptime_seconds": time.Since(c.startTime).Seconds(),
		"apps":           apps,
		"storage":        stats,
	}
}

// QueryLatest returns the latest stored snapshots for an App
func (c *Collector) QueryLatest(appID string, limit int) ([]*Snapshot, error) {
	c.mu.RLock()
	storage := c.storage
	c.mu.RUnlock()

	if storage == nil {
		return []*Snapshot{}, nil
	}
	return storage.QueryLatest(appID, limit)
}

// storeSnapshot buffers a snapshot for the next flush
func (c *Collector) storeSnapshot(snapshot *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storage == nil {
		return
	}

	c.batchBuffer = append(c.batchBuffer, snapshot)
	if len(c.batchBuffer) >= c.batchSize {
		c.flushLocked()
	}
}

// flushRoutine periodically flushes buffered snapshots and enforces retention
func (c *Collector) flushRoutine() {
	defer c.wg.Done()

	for {
		c.mu.RLock()
		stop := c.stopChan
		ticker := c.flushTicker
		c.mu.RUnlock()
		if stop == nil || ticker == nil {
			return
		}

		select {
		case <-ticker.C:
			c.flushNow()
			if c.retention > 0 {
				if err := c.storage.Cleanup(time.Now().Add(-c.retention)); err != nil {
					logger.Warnf(nil, "metrics retention cleanup failed: %v", err)
				}
			}
		case <-stop:
			return
		}
	}
}

func (c *Collector) flushNow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushLocked()
}

// flushLocked writes the buffered snapshots, caller holds c.mu
func (c *Collector) flushLocked() {
	if c.storage == nil || len(c.batchBuffer) == 0 {
		return
	}

	if err := c.storage.StoreBatch(c.batchBuffer); err != nil {
		logger.Errorf(nil, "failed to flush %d metric snapshots: %v", len(c.batchBuffer), err)
		return
	}
	c.batchBuffer = c.batchBuffer[:0]
}
