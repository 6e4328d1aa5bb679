package event

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tunbase/apphost/logging/logger"
	"github.com/tunbase/apphost/nanoid"
	"github.com/tunbase/apphost/types"
)

// Dispatcher handles event publishing and subscription. It backs the
// emit channel handed to hooks: fire-and-forget, best-effort delivery,
// handler failures isolated per subscriber.
type Dispatcher struct {
	subscribers map[string][]func(any)
	mu          sync.RWMutex
	metrics     struct {
		published      atomic.Int64
		delivered      atomic.Int64
		failed         atomic.Int64
		retries        atomic.Int64
		lastEventTime  atomic.Value // time.Time
		activeHandlers atomic.Int32
		startTime      time.Time
		recentEvents   []time.Time
		recentEventsMu sync.Mutex
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		subscribers: make(map[string][]func(any)),
	}
	d.metrics.lastEventTime.Store(time.Time{})
	d.metrics.startTime = time.Now()
	d.metrics.recentEvents = make([]time.Time, 0, 1000)
	return d
}

// Subscribe adds a handler for a specific event
func (d *Dispatcher) Subscribe(eventName string, handler func(any)) {
	if handler == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.subscribers[eventName] = append(d.subscribers[eventName], d.wrapHandler(handler))
}

// Publish sends an event to all subscribers
func (d *Dispatcher) Publish(eventName string, data any) {
	d.mu.RLock()
	handlers := d.subscribers[eventName]
	handlerCount := len(handlers)
	d.mu.RUnlock()

	if handlerCount == 0 {
		return
	}

	d.metrics.published.Add(int64(handlerCount))

	now := time.Now()
	d.metrics.lastEventTime.Store(now)
	d.recordRecentEvent(now)

	eventData := types.EventData{
		ID:        nanoid.PrimaryKey(),
		Time:      now,
		Source:    "runtime",
		EventType: eventName,
		Data:      data,
	}

	for _, handler := range handlers {
		go handler(eventData)
	}
}

// PublishWithRetry publishes an event, backing off between attempts when
// no subscriber is registered yet
func (d *Dispatcher) PublishWithRetry(eventName string, data any, maxRetries int) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			d.metrics.retries.Add(1)
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		d.mu.RLock()
		hasHandlers := len(d.subscribers[eventName]) > 0
		d.mu.RUnlock()

		if hasHandlers {
			d.Publish(eventName, data)
			return
		}
	}
	d.metrics.failed.Add(1)
}

// wrapHandler wraps user handler with metrics and panic isolation
func (d *Dispatcher) wrapHandler(handler func(any)) func(any) {
	return func(data any) {
		d.metrics.activeHandlers.Add(1)
		defer d.metrics.activeHandlers.Add(-1)

		defer func() {
			if r := recover(); r != nil {
				d.metrics.failed.Add(1)
				logger.Errorf(nil, "event handler panic: %v", r)
				return
			}
			d.metrics.delivered.Add(1)
		}()

		handler(data)
	}
}

// recordRecentEvent records event time for rate calculation
func (d *Dispatcher) recordRecentEvent(eventTime time.Time) {
	d.metrics.recentEventsMu.Lock()
	defer d.metrics.recentEventsMu.Unlock()

	d.metrics.recentEvents = append(d.metrics.recentEvents, eventTime)

	// Drop events older than 60 seconds
	cutoff := eventTime.Add(-60 * time.Second)
	start := 0
	for i, t := range d.metrics.recentEvents {
		if t.After(cutoff) {
			start = i
			break
		}
	}
	if start > 0 {
		copy(d.metrics.recentEvents, d.metrics.recentEvents[start:])
		d.metrics.recentEvents = d.metrics.recentEvents[:len(d.metrics.recentEvents)-start]
	}

	// Bound the slice to avoid unbounded growth
	if len(d.metrics.recentEvents) > 1000 {
		start = len(d.metrics.recentEvents) - 1000
		copy(d.metrics.recentEvents, d.metrics.recentEvents[start:])
		d.metrics.recentEvents = d.metrics.recentEvents[:1000]
	}
}

// GetMetrics returns dispatcher metrics
func (d *Dispatcher) GetMetrics() map[string]any {
	lastEventTime := d.metrics.lastEventTime.Load().(time.Time)
	published := d.metrics.published.Load()
	delivered := d.metrics.delivered.Load()
	failed := d.metrics.failed.Load()

	var successRate float64
	if published > 0 {
		successRate = (float64(delivered) / float64(published)) * 100.0
	}

	uptime := time.Since(d.metrics.startTime)

	return map[string]any{
		"published":         published,
		"delivered":         delivered,
		"failed":            failed,
		"retries":           d.metrics.retries.Load(),
		"success_rate":      successRate,
		"last_event_time":   lastEventTime,
		"active_handlers":   d.metrics.activeHandlers.Load(),
		"events_per_minute": d.calculateEventsPerMinute(),
		"uptime_seconds":    uptime.Seconds(),
	}
}

// calculateEventsPerMinute calculates events rate in last 60 seconds
func (d *Dispatcher) calculateEventsPerMinute() float64 {
	d.metrics.recentEventsMu.Lock()
	defer d.metrics.recentEventsMu.Unlock()

	cutoff := time.Now().Add(-60 * time.Second)
	count := 0
	for _, eventTime := range d.metrics.recentEvents {
		if eventTime.After(cutoff) {
			count++
		}
	}
	return float64(count)
}
