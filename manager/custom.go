package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tunbase/apphost/logging/logger"
	"github.com/tunbase/apphost/types"
)

// registerBreaker creates the per-App circuit breaker used around
// custom hook invocation
func (m *Manager) registerBreaker(appID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.breakers[appID]; ok {
		return
	}
	m.breakers[appID] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("app-%s", appID),
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf(nil, "circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

func (m *Manager) removeBreaker(appID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.breakers, appID)
}

func (m *Manager) breaker(appID string) *gobreaker.CircuitBreaker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.breakers[appID]
}

// InvokeCustomHook runs one of the App's custom hooks by key. Custom
// hooks are never dispatched automatically; this is the only entry
// point. Calls go through the App's circuit breaker so a misbehaving
// extension cannot be hammered by the host.
func (m *Manager) InvokeCustomHook(ctx context.Context, appID, key string, t *types.Tunnel, args ...any) (any, error) {
	app, entry, ok := m.registry.AppByID(appID)
	if !ok {
		return nil, fmt.Errorf("app %q: %w", appID, types.ErrExtensionNotFound)
	}
	if !entry.Enabled {
		return nil, fmt.Errorf("app %q is not enabled", appID)
	}
	if app.Hooks == nil || app.Hooks.Custom == nil {
		return nil, fmt.Errorf("app %q declares no custom hook %q", appID, key)
	}
	hook, ok := app.Hooks.Custom[key]
	if !ok {
		return nil, fmt.Errorf("app %q declares no custom hook %q", appID, key)
	}

	hc := m.hookContext(t)
	invoke := func() (any, error) {
		start := time.Now()
		result, err := callCustomHook(ctx, hook, hc, args...)
		m.collector.HookInvoked(appID, "custom:"+key, time.Since(start), err)
		if err != nil {
			return nil, types.NewHookError(appID, "custom:"+key, err)
		}
		return result, nil
	}

	cb := m.breaker(appID)
	if cb == nil {
		return invoke()
	}
	return cb.Execute(invoke)
}

// callCustomHook guards the hook call; a panic becomes an error
func callCustomHook(ctx context.Context, hook types.CustomHookFunc, hc *types.HookContext, args ...any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return hook(ctx, hc, args...)
}
