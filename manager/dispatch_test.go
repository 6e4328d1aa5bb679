package manager

import (
	"context"
	"errors"
	"testing"

	"github.com/tunbase/apphost/types"
)

func registerActive(t *testing.T, m *Manager, pkg *types.ExtensionPackage) {
	t.Helper()
	ctx := context.Background()
	if err := m.Register(ctx, pkg); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := m.Activate(ctx, pkg.Metadata.ID); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
}

func TestStartTunnelRunsAppHooks(t *testing.T) {
	m := newTestManager(t)

	var seenTunnel string
	pkg := testPackage("pkg1", "app1", "1.0.0")
	pkg.App.Hooks = &types.AppHooks{
		OnStart: func(ctx context.Context, hc *types.HookContext) (*types.ActionResult, error) {
			seenTunnel = hc.Tunnel.ID
			return &types.ActionResult{Success: true, Message: "up"}, nil
		},
	}
	registerActive(t, m, pkg)

	tunnel := &types.Tunnel{ID: "t1", AppID: "app1", Type: types.TunnelHTTP}
	result := m.StartTunnel(context.Background(), tunnel)
	if !result.Success || result.Message != "up" {
		t.Errorf("unexpected result: %+v", result)
	}
	if seenTunnel != "t1" {
		t.Errorf("hook saw tunnel %q", seenTunnel)
	}
}

func TestStartTunnelWithoutAppSucceeds(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	// no app id at all
	result := m.StartTunnel(ctx, &types.Tunnel{ID: "t1"})
	if !result.Success {
		t.Errorf("tunnel without app must start with default behavior: %+v", result)
	}

	// dangling app id
	result = m.StartTunnel(ctx, &types.Tunnel{ID: "t2", AppID: "gone"})
	if !result.Success {
		t.Errorf("tunnel with unknown app must fall back to success: %+v", result)
	}
}

func TestStartTunnelSkipsDisabledApp(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	invoked := false
	pkg := testPackage("pkg1", "app1", "1.0.0")
	pkg.App.Hooks = &types.AppHooks{
		OnStart: func(ctx context.Context, hc *types.HookContext) (*types.ActionResult, error) {
			invoked = true
			return types.Failed("should not run"), nil
		},
	}
	if err := m.Register(ctx, pkg); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	result := m.StartTunnel(ctx, &types.Tunnel{ID: "t1", AppID: "app1"})
	if !result.Success {
		t.Errorf("disabled app's hooks must not affect the action: %+v", result)
	}
	if invoked {
		t.Error("disabled app's hook was invoked")
	}
}

func TestStopTunnelBeforeAbort(t *testing.T) {
	m := newTestManager(t)

	pkg := testPackage("pkg1", "app1", "1.0.0")
	pkg.App.Hooks = &types.AppHooks{
		OnBeforeStop: func(ctx context.Context, hc *types.HookContext) error {
			return errors.New("flush pending")
		},
	}
	registerActive(t, m, pkg)

	result := m.StopTunnel(context.Background(), &types.Tunnel{ID: "t1", AppID: "app1"})
	if result.Success {
		t.Error("before-stop abort must fail the action")
	}
}

func TestDeleteTunnelVeto(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pkg := testPackage("pkg1", "app1", "1.0.0")
	pkg.App.Hooks = &types.AppHooks{
		OnBeforeDelete: func(ctx context.Context, hc *types.HookContext) (bool, error) {
			return false, nil
		},
	}
	registerActive(t, m, pkg)

	err := m.DeleteTunnel(ctx, &types.Tunnel{ID: "t1", AppID: "app1"})
	if !errors.Is(err, types.ErrVetoedDeletion) {
		t.Errorf("expected ErrVetoedDeletion, got %v", err)
	}
}

func TestDeleteTunnelAllowed(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pkg := testPackage("pkg1", "app1", "1.0.0")
	pkg.App.Hooks = &types.AppHooks{
		OnBeforeDelete: func(ctx context.Context, hc *types.HookContext) (bool, error) {
			return true, nil
		},
	}
	registerActive(t, m, pkg)

	if err := m.DeleteTunnel(ctx, &types.Tunnel{ID: "t1", AppID: "app1"}); err != nil {
		t.Errorf("expected deletion to proceed: %v", err)
	}

	// absent gate and absent app both allow
	if err := m.DeleteTunnel(ctx, &types.Tunnel{ID: "t2"}); err != nil {
		t.Errorf("tunnel without app must delete freely: %v", err)
	}
}

func TestDeleteTunnelGateFailureBlocks(t *testing.T) {
	m := newTestManager(t)

	pkg := testPackage("pkg1", "app1", "1.0.0")
	pkg.App.Hooks = &types.AppHooks{
		OnBeforeDelete: func(ctx context.Context, hc *types.HookContext) (bool, error) {
			return true, errors.New("state unknown")
		},
	}
	registerActive(t, m, pkg)

	err := m.DeleteTunnel(context.Background(), &types.Tunnel{ID: "t1", AppID: "app1"})
	var hookErr *types.HookError
	if !errors.As(err, &hookErr) {
		t.Errorf("expected HookError to block the deletion, got %v", err)
	}
}

func TestNotifyLocaleChangeReachesEnabledAppsOnly(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	var notified []string
	mk := func(pkgID, appID string) *types.ExtensionPackage {
		pkg := testPackage(pkgID, appID, "1.0.0")
		pkg.App.Hooks = &types.AppHooks{
			OnLocaleChange: func(ctx context.Context, hc *types.HookContext) error {
				notified = append(notified, appID)
				return nil
			},
		}
		return pkg
	}

	registerActive(t, m, mk("pkg1", "app1"))
	if err := m.Register(ctx, mk("pkg2", "app2")); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	m.NotifyLocaleChange(ctx, &types.Tunnel{ID: "t1"})

	if len(notified) != 1 || notified[0] != "app1" {
		t.Errorf("expected only the enabled app notified, got %v", notified)
	}
}

func TestNotifyThemeChangeIsolation(t *testing.T) {
	m := newTestManager(t)

	reached := false
	broken := testPackage("pkg1", "app1", "1.0.0")
	broken.App.Hooks = &types.AppHooks{
		OnThemeChange: func(ctx context.Context, hc *types.HookContext) error {
			panic("theme handler broken")
		},
	}
	healthy := testPackage("pkg2", "app2", "1.0.0")
	healthy.App.Hooks = &types.AppHooks{
		OnThemeChange: func(ctx context.Context, hc *types.HookContext) error {
			reached = true
			return nil
		},
	}
	registerActive(t, m, broken)
	registerActive(t, m, healthy)

	m.NotifyThemeChange(context.Background(), &types.Tunnel{ID: "t1"})

	if !reached {
		t.Error("one app's panic must not block the broadcast to others")
	}
}

func TestHookContextSnapshotsHost(t *testing.T) {
	m := newTestManager(t)
	m.SetHost(staticHost{locale: "de", dark: true, mode: "dark"})

	var seen *types.HookContext
	pkg := testPackage("pkg1", "app1", "1.0.0")
	pkg.App.Hooks = &types.AppHooks{
		OnStart: func(ctx context.Context, hc *types.HookContext) (*types.ActionResult, error) {
			seen = hc
			return types.Succeeded(), nil
		},
	}
	registerActive(t, m, pkg)

	m.StartTunnel(context.Background(), &types.Tunnel{ID: "t1", AppID: "app1"})

	if seen == nil {
		t.Fatal("hook did not run")
	}
	if seen.Locale != "de" || !seen.IsDark || seen.ThemeMode != "dark" {
		t.Errorf("hook context did not snapshot host state: %+v", seen)
	}
	if seen.T("any.key", "fallback") != "any.key translated" {
		t.Error("hook context translate not wired to the host")
	}
	if seen.Emit == nil {
		t.Error("hook context emit not wired")
	}
}

type staticHost struct {
	locale string
	dark   bool
	mode   string
}

func (h staticHost) Translate(key, _ string) string { return key + " translated" }
func (h staticHost) Locale() string                 { return h.locale }
func (h staticHost) IsDark() bool                   { return h.dark }
func (h staticHost) ThemeMode() string              { return h.mode }
