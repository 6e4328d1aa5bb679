package manager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/tunbase/apphost/logging/logger"
	"github.com/tunbase/apphost/types"
	"github.com/tunbase/apphost/validator"
)

// Register installs an extension package: validates it, checks the
// registry for duplicates and dependency satisfaction, awaits OnInstall
// and inserts the package in installed (not yet enabled) state. A failed
// install script leaves the registry untouched; there is no retry.
func (m *Manager) Register(ctx context.Context, pkg *types.ExtensionPackage) error {
	if pkg == nil || pkg.App == nil {
		return fmt.Errorf("extension package and its app definition are required")
	}

	if fields := validator.ValidateStruct(pkg); len(fields) > 0 {
		return fmt.Errorf("invalid extension package %q: %v", pkg.Metadata.ID, fields)
	}

	if err := validateAppDefinition(pkg.App); err != nil {
		return fmt.Errorf("invalid extension package %q: %w", pkg.Metadata.ID, err)
	}

	id := pkg.Metadata.ID
	if m.registry.Has(id) {
		return fmt.Errorf("package %q: %w", id, types.ErrDuplicateExtension)
	}

	if max := m.maxPackages(); max > 0 && m.registry.Count() >= max {
		return fmt.Errorf("package %q: registry full (max %d packages)", id, max)
	}

	if err := m.checkDependencies(&pkg.Metadata); err != nil {
		return err
	}

	start := time.Now()
	if pkg.OnInstall != nil {
		if err := m.timeouts.WithScriptTimeout(ctx, pkg.OnInstall); err != nil {
			return types.NewHookError(id, types.PhaseInstall, err)
		}
	}

	if !m.registry.Add(pkg, types.StatusInstalled, false) {
		// lost a race with a concurrent Register of the same id
		return fmt.Errorf("package %q: %w", id, types.ErrDuplicateExtension)
	}

	m.registerBreaker(pkg.App.ID)
	m.collector.AppRegistered(pkg.App.ID, time.Since(start))
	m.dispatcher.Publish(fmt.Sprintf("apps.%s.registered", id), pkg.Metadata)
	logger.Infof(ctx, "registered extension package %s@%s", id, pkg.Metadata.Version)
	return nil
}

// Activate runs the package's OnActivate script and enables its App.
// Activating an already enabled package is a no-op; the script runs
// once per transition. A failed script leaves the package disabled.
func (m *Manager) Activate(ctx context.Context, id string) error {
	entry, ok := m.registry.Get(id)
	if !ok {
		return fmt.Errorf("package %q: %w", id, types.ErrExtensionNotFound)
	}
	if entry.Enabled {
		return nil
	}

	if script := entry.Package.OnActivate; script != nil {
		if err := m.timeouts.WithScriptTimeout(ctx, script); err != nil {
			m.registry.SetStatus(id, types.StatusError)
			return types.NewHookError(id, types.PhaseActivate, err)
		}
	}

	m.registry.SetEnabled(id, true)
	m.dispatcher.Publish(fmt.Sprintf("apps.%s.activated", id), entry.Package.Metadata)
	logger.Infof(ctx, "activated extension package %s", id)
	return nil
}

// Deactivate disables the package's App and unmounts any adapters it
// still drives. The flag flips and adapters come down even when the
// OnDeactivate script fails; the script error is still returned so the
// caller can surface it.
func (m *Manager) Deactivate(ctx context.Context, id string) error {
	entry, ok := m.registry.Get(id)
	if !ok {
		return fmt.Errorf("package %q: %w", id, types.ErrExtensionNotFound)
	}
	if !entry.Enabled {
		return nil
	}

	var scriptErr error
	if script := entry.Package.OnDeactivate; script != nil {
		if err := m.timeouts.WithScriptTimeout(ctx, script); err != nil {
			scriptErr = types.NewHookError(id, types.PhaseDeactivate, err)
			logger.Errorf(ctx, "deactivate script failed for package %s: %v", id, err)
		}
	}

	m.registry.SetEnabled(id, false)
	m.unbindApp(ctx, entry.Package.App.ID)
	m.dispatcher.Publish(fmt.Sprintf("apps.%s.deactivated", id), entry.Package.Metadata)
	logger.Infof(ctx, "deactivated extension package %s", id)
	return scriptErr
}

// Unregister removes a package entirely. OnUninstall is best-effort: a
// failure is logged and removal proceeds. Adapters bound to the App are
// force-unmounted first. Registering the same package again afterwards
// restores the pre-registration state.
func (m *Manager) Unregister(ctx context.Context, id string) error {
	entry, ok := m.registry.Get(id)
	if !ok {
		return fmt.Errorf("package %q: %w", id, types.ErrExtensionNotFound)
	}

	if deps := m.dependents(id); len(deps) > 0 {
		logger.Warnf(ctx, "unregistering package %s still depended on by %v", id, deps)
	}

	if entry.Enabled {
		if err := m.Deactivate(ctx, id); err != nil {
			logger.Errorf(ctx, "deactivate during unregister of %s: %v", id, err)
		}
	}

	appID := entry.Package.App.ID
	m.unbindApp(ctx, appID)

	if script := entry.Package.OnUninstall; script != nil {
		if err := m.timeouts.WithScriptTimeout(ctx, script); err != nil {
			logger.Errorf(ctx, "uninstall script failed for package %s: %v", id, err)
		}
	}

	m.registry.Remove(id)
	m.removeBreaker(appID)
	m.collector.AppUnregistered(appID)
	m.dispatcher.Publish(fmt.Sprintf("apps.%s.unregistered", id), entry.Package.Metadata)
	logger.Infof(ctx, "unregistered extension package %s", id)
	return nil
}

// checkDependencies verifies that every declared dependency is already
// registered and that its version satisfies the declared range.
// Registration order is the caller's responsibility; the loader never
// reorders.
func (m *Manager) checkDependencies(meta *types.ExtensionMetadata) error {
	for depID, verRange := range meta.Dependencies {
		dep, ok := m.registry.Get(depID)
		if !ok {
			return fmt.Errorf("package %q requires %q: %w", meta.ID, depID, types.ErrMissingDependency)
		}

		constraint, err := semver.NewConstraint(verRange)
		if err != nil {
			return fmt.Errorf("package %q declares invalid version range %q for %q: %w", meta.ID, verRange, depID, err)
		}
		version, err := semver.NewVersion(dep.Package.Metadata.Version)
		if err != nil {
			return fmt.Errorf("registered package %q has invalid version %q: %w", depID, dep.Package.Metadata.Version, err)
		}
		if !constraint.Check(version) {
			return fmt.Errorf("package %q requires %q %s, registered %s: %w",
				meta.ID, depID, verRange, version, types.ErrVersionMismatch)
		}
	}
	return nil
}

func (m *Manager) maxPackages() int {
	if m.conf == nil || m.conf.Runtime == nil {
		return 0
	}
	return m.conf.Runtime.MaxPackages
}

// dependents returns the ids of registered packages declaring a
// dependency on the given package id
func (m *Manager) dependents(id string) []string {
	var out []string
	for otherID, entry := range m.registry.List() {
		if otherID == id {
			continue
		}
		if _, ok := entry.Package.Metadata.Dependencies[id]; ok {
			out = append(out, otherID)
		}
	}
	return out
}

// validateAppDefinition checks the constraints the struct tags cannot
// express: App id presence and unique tab/action keys.
func validateAppDefinition(app *types.AppDefinition) error {
	if app.ID == "" {
		return fmt.Errorf("app id is required")
	}

	tabs := make(map[string]struct{}, len(app.Tabs))
	for _, tab := range app.Tabs {
		if tab.Key == "" {
			return fmt.Errorf("app %q declares a tab with an empty key", app.ID)
		}
		// dot-prefixed keys are reserved for the runtime's own UI slots
		if strings.HasPrefix(tab.Key, ".") {
			return fmt.Errorf("app %q declares reserved tab key %q", app.ID, tab.Key)
		}
		if _, dup := tabs[tab.Key]; dup {
			return fmt.Errorf("app %q declares duplicate tab key %q", app.ID, tab.Key)
		}
		tabs[tab.Key] = struct{}{}
	}

	actions := make(map[string]struct{}, len(app.Actions))
	for _, action := range app.Actions {
		if action.Key == "" {
			return fmt.Errorf("app %q declares an action with an empty key", app.ID)
		}
		if _, dup := actions[action.Key]; dup {
			return fmt.Errorf("app %q declares duplicate action key %q", app.ID, action.Key)
		}
		actions[action.Key] = struct{}{}
	}
	return nil
}
