package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/tunbase/apphost/adapter"
	"github.com/tunbase/apphost/config"
	"github.com/tunbase/apphost/event"
	"github.com/tunbase/apphost/logging/logger"
	"github.com/tunbase/apphost/metrics"
	"github.com/tunbase/apphost/pipeline"
	"github.com/tunbase/apphost/registry"
	"github.com/tunbase/apphost/timeout"
	"github.com/tunbase/apphost/types"
)

// Host supplies the i18n and theme state the runtime snapshots into
// every hook context. The runtime never caches these values beyond one
// invocation.
type Host interface {
	Translate(key, fallback string) string
	Locale() string
	IsDark() bool
	ThemeMode() string
}

// defaultHost is used until the embedding application provides one
type defaultHost struct{}

func (defaultHost) Translate(_, fallback string) string { return fallback }
func (defaultHost) Locale() string                      { return "en" }
func (defaultHost) IsDark() bool                        { return false }
func (defaultHost) ThemeMode() string                   { return "light" }

// Manager is the extension host runtime coordinator. It owns the
// package registry and the per-tunnel UI binding table; the loader and
// pipeline request mutations through it rather than mutating directly.
type Manager struct {
	conf       *config.Config
	registry   *registry.Registry
	dispatcher *event.Dispatcher
	pipeline   *pipeline.Pipeline
	adapters   *adapter.Controller
	collector  *metrics.Collector
	timeouts   *timeout.Manager

	mu       sync.RWMutex
	host     Host
	breakers map[string]*gobreaker.CircuitBreaker
	bindings map[string]map[string]*binding // tunnel id -> tab key -> binding

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a new extension host runtime
func NewManager(conf *config.Config) (*Manager, error) {
	if conf == nil {
		var err error
		conf, err = config.GetConfig()
		if err != nil {
			return nil, err
		}
	}

	timeouts, err := timeout.NewManager(conf.Runtime)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize timeouts: %w", err)
	}

	collector, err := newCollector(conf.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		conf:       conf,
		registry:   registry.New(),
		dispatcher: event.NewDispatcher(),
		adapters:   adapter.NewController(),
		collector:  collector,
		timeouts:   timeouts,
		host:       defaultHost{},
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
		bindings:   make(map[string]map[string]*binding),
		ctx:        ctx,
		cancel:     cancel,
	}
	m.pipeline = pipeline.New(collector)

	return m, nil
}

// newCollector builds the metrics collector from configuration
func newCollector(cfg *config.Metrics) (*metrics.Collector, error) {
	if cfg == nil || !cfg.Enabled {
		return metrics.NewCollector(nil, false, 0, 0), nil
	}

	flushInterval, _ := time.ParseDuration(cfg.FlushInterval)
	retention, _ := time.ParseDuration(cfg.Retention)

	var storage metrics.Storage
	switch cfg.Storage.Type {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis connection test failed: %w", err)
		}
		storage = metrics.NewRedisStorage(client, cfg.Storage.KeyPrefix, retention)
	default:
		storage = metrics.NewMemoryStorage()
	}

	return metrics.NewCollector(storage, true, flushInterval, retention), nil
}

// SetHost installs the embedding application's i18n/theme provider
func (m *Manager) SetHost(h Host) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.host = h
}

// GetConfig returns the runtime configuration
func (m *Manager) GetConfig() *config.Config {
	return m.conf
}

// GetApp returns the registered App definition with the given App id
func (m *Manager) GetApp(appID string) (*types.AppDefinition, error) {
	app, _, ok := m.registry.AppByID(appID)
	if !ok {
		return nil, fmt.Errorf("app %q: %w", appID, types.ErrExtensionNotFound)
	}
	return app, nil
}

// ListPackages returns all registered packages with their status
func (m *Manager) ListPackages() map[string]*registry.Entry {
	return m.registry.List()
}

// GetMetadata returns metadata of all registered packages
func (m *Manager) GetMetadata() map[string]types.ExtensionMetadata {
	result := make(map[string]types.ExtensionMetadata)
	for id, entry := range m.registry.List() {
		result[id] = entry.Package.Metadata
	}
	return result
}

// GetStatus returns the status of all registered packages
func (m *Manager) GetStatus() map[string]string {
	result := make(map[string]string)
	for id, entry := range m.registry.List() {
		result[id] = entry.Status
	}
	return result
}

// GetMetrics returns runtime metrics
func (m *Manager) GetMetrics() map[string]any {
	return m.collector.GetMetrics()
}

// GetEventsMetrics returns event dispatcher metrics
func (m *Manager) GetEventsMetrics() map[string]any {
	return m.dispatcher.GetMetrics()
}

// hookContext builds the per-invocation snapshot for a tunnel
func (m *Manager) hookContext(t *types.Tunnel) *types.HookContext {
	m.mu.RLock()
	host := m.host
	m.mu.RUnlock()

	return &types.HookContext{
		Tunnel:    t,
		Emit:      m.emit,
		T:         host.Translate,
		Locale:    host.Locale(),
		IsDark:    host.IsDark(),
		ThemeMode: host.ThemeMode(),
	}
}

// Cleanup shuts the runtime down: unmounts all adapters, deactivates
// enabled packages and stops background routines.
func (m *Manager) Cleanup() {
	ctx := context.Background()

	for id, entry := range m.registry.List() {
		if entry.Enabled {
			if err := m.Deactivate(ctx, id); err != nil {
				logger.Errorf(ctx, "deactivate %s during shutdown: %v", id, err)
			}
		}
	}

	m.cancel()
	m.collector.Stop()
}
