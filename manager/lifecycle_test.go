package manager

import (
	"context"
	"errors"
	"testing"

	"github.com/tunbase/apphost/config"
	"github.com/tunbase/apphost/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(&config.Config{
		Runtime: &config.Runtime{ScriptTimeout: "5s", DispatchTimeout: "10s"},
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	t.Cleanup(m.Cleanup)
	return m
}

func testPackage(id, appID, version string) *types.ExtensionPackage {
	return &types.ExtensionPackage{
		Metadata: types.ExtensionMetadata{
			ID:      id,
			Name:    "Test " + id,
			Version: version,
		},
		App: &types.AppDefinition{ID: appID, Name: "App " + appID},
	}
}

func TestRegisterAndStatus(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	installed := false
	pkg := testPackage("pkg1", "app1", "1.2.3")
	pkg.OnInstall = func(ctx context.Context) error {
		installed = true
		return nil
	}

	if err := m.Register(ctx, pkg); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !installed {
		t.Error("install script did not run")
	}

	status := m.GetStatus()
	if status["pkg1"] != types.StatusInstalled {
		t.Errorf("expected installed status, got %q", status["pkg1"])
	}

	meta := m.GetMetadata()
	if meta["pkg1"].Version != "1.2.3" {
		t.Errorf("unexpected metadata: %+v", meta["pkg1"])
	}
}

func TestRegisterDuplicate(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if err := m.Register(ctx, testPackage("pkg1", "app1", "1.0.0")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	err := m.Register(ctx, testPackage("pkg1", "app1b", "2.0.0"))
	if !errors.Is(err, types.ErrDuplicateExtension) {
		t.Errorf("expected ErrDuplicateExtension, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if err := m.Register(ctx, nil); err == nil {
		t.Error("nil package must be rejected")
	}

	bad := testPackage("pkg1", "app1", "not-a-version")
	if err := m.Register(ctx, bad); err == nil {
		t.Error("invalid semver version must be rejected")
	}

	noApp := testPackage("pkg2", "app2", "1.0.0")
	noApp.App = nil
	if err := m.Register(ctx, noApp); err == nil {
		t.Error("package without app must be rejected")
	}

	dupTabs := testPackage("pkg3", "app3", "1.0.0")
	dupTabs.App.Tabs = []types.AppTab{{Key: "logs"}, {Key: "logs"}}
	if err := m.Register(ctx, dupTabs); err == nil {
		t.Error("duplicate tab keys must be rejected")
	}
}

func TestRegisterDependencyChecks(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	dependent := testPackage("pkg-b", "app-b", "1.0.0")
	dependent.Metadata.Dependencies = map[string]string{"pkg-a": ">=1.1.0 <2.0.0"}

	err := m.Register(ctx, dependent)
	if !errors.Is(err, types.ErrMissingDependency) {
		t.Fatalf("expected ErrMissingDependency, got %v", err)
	}

	// registered but outside the declared range
	if err := m.Register(ctx, testPackage("pkg-a", "app-a", "1.0.0")); err != nil {
		t.Fatalf("register dependency failed: %v", err)
	}
	err = m.Register(ctx, dependent)
	if !errors.Is(err, types.ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}

	// replace with a satisfying version
	if err := m.Unregister(ctx, "pkg-a"); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}
	if err := m.Register(ctx, testPackage("pkg-a", "app-a", "1.4.2")); err != nil {
		t.Fatalf("register dependency failed: %v", err)
	}
	if err := m.Register(ctx, dependent); err != nil {
		t.Fatalf("expected register to succeed with satisfied range: %v", err)
	}
}

func TestRegisterInstallFailure(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pkg := testPackage("pkg1", "app1", "1.0.0")
	pkg.OnInstall = func(ctx context.Context) error {
		return errors.New("migration failed")
	}

	err := m.Register(ctx, pkg)
	var hookErr *types.HookError
	if !errors.As(err, &hookErr) {
		t.Fatalf("expected HookError, got %v", err)
	}
	if hookErr.Phase != types.PhaseInstall {
		t.Errorf("expected install phase, got %q", hookErr.Phase)
	}
	if len(m.ListPackages()) != 0 {
		t.Error("failed install must leave the registry untouched")
	}
}

func TestRegisterMaxPackages(t *testing.T) {
	m, err := NewManager(&config.Config{
		Runtime: &config.Runtime{MaxPackages: 1, ScriptTimeout: "5s", DispatchTimeout: "10s"},
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	t.Cleanup(m.Cleanup)
	ctx := context.Background()

	if err := m.Register(ctx, testPackage("pkg1", "app1", "1.0.0")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := m.Register(ctx, testPackage("pkg2", "app2", "1.0.0")); err == nil {
		t.Error("register beyond the package limit must fail")
	}
}

func TestActivateDeactivateScripts(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	activations := 0
	deactivations := 0
	pkg := testPackage("pkg1", "app1", "1.0.0")
	pkg.OnActivate = func(ctx context.Context) error {
		activations++
		return nil
	}
	pkg.OnDeactivate = func(ctx context.Context) error {
		deactivations++
		return nil
	}

	if err := m.Register(ctx, pkg); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := m.Activate(ctx, "pkg1"); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	// second activate is a no-op, the script runs once per transition
	if err := m.Activate(ctx, "pkg1"); err != nil {
		t.Fatalf("repeated activate failed: %v", err)
	}
	if activations != 1 {
		t.Errorf("expected 1 activation, got %d", activations)
	}
	if m.GetStatus()["pkg1"] != types.StatusActive {
		t.Errorf("expected active status, got %q", m.GetStatus()["pkg1"])
	}

	if err := m.Deactivate(ctx, "pkg1"); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if err := m.Deactivate(ctx, "pkg1"); err != nil {
		t.Fatalf("repeated deactivate failed: %v", err)
	}
	if deactivations != 1 {
		t.Errorf("expected 1 deactivation, got %d", deactivations)
	}
	if m.GetStatus()["pkg1"] != types.StatusDisabled {
		t.Errorf("expected disabled status, got %q", m.GetStatus()["pkg1"])
	}
}

func TestActivateScriptFailure(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pkg := testPackage("pkg1", "app1", "1.0.0")
	pkg.OnActivate = func(ctx context.Context) error {
		return errors.New("license check failed")
	}
	if err := m.Register(ctx, pkg); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	err := m.Activate(ctx, "pkg1")
	var hookErr *types.HookError
	if !errors.As(err, &hookErr) {
		t.Fatalf("expected HookError, got %v", err)
	}
	entry, _ := m.registry.Get("pkg1")
	if entry.Enabled {
		t.Error("failed activation must leave the package disabled")
	}
	if entry.Status != types.StatusError {
		t.Errorf("expected error status, got %q", entry.Status)
	}
}

func TestUnregisterRoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	uninstalled := false
	pkg := testPackage("pkg1", "app1", "1.0.0")
	pkg.OnUninstall = func(ctx context.Context) error {
		uninstalled = true
		return errors.New("cleanup failed") // best-effort, removal proceeds
	}

	if err := m.Register(ctx, pkg); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := m.Activate(ctx, "pkg1"); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	if err := m.Unregister(ctx, "pkg1"); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}
	if !uninstalled {
		t.Error("uninstall script did not run")
	}
	if len(m.ListPackages()) != 0 {
		t.Error("registry not empty after unregister")
	}

	// round trip: the same package registers cleanly again
	if err := m.Register(ctx, testPackage("pkg1", "app1", "1.0.0")); err != nil {
		t.Fatalf("re-register after unregister failed: %v", err)
	}
}

func TestUnregisterUnknown(t *testing.T) {
	m := newTestManager(t)

	err := m.Unregister(context.Background(), "missing")
	if !errors.Is(err, types.ErrExtensionNotFound) {
		t.Errorf("expected ErrExtensionNotFound, got %v", err)
	}
}
