package manager

import (
	"context"
	"fmt"

	"github.com/tunbase/apphost/logging/logger"
	"github.com/tunbase/apphost/pipeline"
	"github.com/tunbase/apphost/types"
)

// StartTunnel runs the tunnel's start action through its App's hook
// pipeline. Tunnels without a resolvable enabled App start with default
// behavior: the result is an unconditional success.
func (m *Manager) StartTunnel(ctx context.Context, t *types.Tunnel) *types.ActionResult {
	return m.dispatchAction(ctx, t, pipeline.ActionStart)
}

// StopTunnel runs the tunnel's stop action through its App's hook pipeline
func (m *Manager) StopTunnel(ctx context.Context, t *types.Tunnel) *types.ActionResult {
	return m.dispatchAction(ctx, t, pipeline.ActionStop)
}

// RestartTunnel runs the tunnel's single-phase restart hook
func (m *Manager) RestartTunnel(ctx context.Context, t *types.Tunnel) *types.ActionResult {
	return m.dispatchAction(ctx, t, pipeline.ActionRestart)
}

func (m *Manager) dispatchAction(ctx context.Context, t *types.Tunnel, action string) *types.ActionResult {
	if t == nil {
		return types.Failed("tunnel is required")
	}

	app := m.resolveApp(ctx, t)
	if app == nil {
		return types.Succeeded()
	}

	hc := m.hookContext(t)

	var result *types.ActionResult
	err := m.timeouts.WithDispatchTimeout(ctx, func(tctx context.Context) error {
		switch action {
		case pipeline.ActionStart:
			result = m.pipeline.DispatchStart(tctx, app.ID, app.Hooks, hc)
		case pipeline.ActionStop:
			result = m.pipeline.DispatchStop(tctx, app.ID, app.Hooks, hc)
		case pipeline.ActionRestart:
			result = m.pipeline.DispatchRestart(tctx, app.ID, app.Hooks, hc)
		default:
			return fmt.Errorf("unknown tunnel action %q", action)
		}
		return nil
	})
	if err != nil {
		// the in-flight hook keeps running; only the wait is abandoned
		logger.Errorf(ctx, "dispatch %s for tunnel %s (app %s) timed out: %v", action, t.ID, app.ID, err)
		return types.Failed(err.Error())
	}

	m.dispatcher.Publish(fmt.Sprintf("tunnel.%s.%s", action, resultLabel(result)), t.ID)
	return result
}

// DeleteTunnel consults the App's before-delete gate. A nil return means
// the deletion may proceed and all UI bindings for the tunnel have been
// torn down. ErrVetoedDeletion means the App refused; a HookError means
// the gate itself failed, which also blocks the deletion.
func (m *Manager) DeleteTunnel(ctx context.Context, t *types.Tunnel) error {
	if t == nil {
		return fmt.Errorf("tunnel is required")
	}

	if app := m.resolveApp(ctx, t); app != nil {
		hc := m.hookContext(t)
		allowed, err := m.pipeline.DispatchDelete(ctx, app.ID, app.Hooks, hc)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("app %q: %w", app.ID, types.ErrVetoedDeletion)
		}
	}

	m.closeTunnelBindings(ctx, t.ID)
	m.dispatcher.Publish("tunnel.deleted", t.ID)
	return nil
}

// NotifyLocaleChange broadcasts the host's locale change to every
// enabled App. Failures are isolated per App and never surface.
func (m *Manager) NotifyLocaleChange(ctx context.Context, t *types.Tunnel) {
	m.broadcast(ctx, types.PhaseLocaleChange, t, func(hooks *types.AppHooks) types.HookFunc {
		return hooks.OnLocaleChange
	})
}

// NotifyThemeChange broadcasts the host's theme change to every enabled App
func (m *Manager) NotifyThemeChange(ctx context.Context, t *types.Tunnel) {
	m.broadcast(ctx, types.PhaseThemeChange, t, func(hooks *types.AppHooks) types.HookFunc {
		return hooks.OnThemeChange
	})
}

func (m *Manager) broadcast(ctx context.Context, phase string, t *types.Tunnel, pick func(*types.AppHooks) types.HookFunc) {
	var targets []pipeline.Notification
	for _, app := range m.registry.EnabledApps() {
		if app.Hooks == nil {
			continue
		}
		hook := pick(app.Hooks)
		if hook == nil {
			continue
		}
		targets = append(targets, pipeline.Notification{
			AppID:   app.ID,
			Hook:    hook,
			Context: m.hookContext(t),
		})
	}
	m.pipeline.Broadcast(ctx, phase, targets)
}

// resolveApp maps tunnel.AppID to its enabled App definition. An empty
// or unknown App id falls back to default host rendering; a known but
// disabled App is treated the same, its hooks are never invoked.
func (m *Manager) resolveApp(ctx context.Context, t *types.Tunnel) *types.AppDefinition {
	if t.AppID == "" {
		return nil
	}
	app, entry, ok := m.registry.AppByID(t.AppID)
	if !ok {
		logger.Debugf(ctx, "tunnel %s references unknown app %q, using default rendering", t.ID, t.AppID)
		return nil
	}
	if !entry.Enabled {
		return nil
	}
	return app
}

// emit backs HookContext.Emit: fire-and-forget delivery into the host
// event dispatcher
func (m *Manager) emit(event string, args ...any) {
	var payload any
	switch len(args) {
	case 0:
	case 1:
		payload = args[0]
	default:
		payload = args
	}
	m.dispatcher.Publish(event, payload)
}

func resultLabel(result *types.ActionResult) string {
	if result != nil && result.Success {
		return "success"
	}
	return "failure"
}
