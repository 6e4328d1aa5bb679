package manager

import (
	"context"
	"fmt"

	"github.com/tunbase/apphost/adapter"
	"github.com/tunbase/apphost/logging/logger"
	"github.com/tunbase/apphost/nanoid"
	"github.com/tunbase/apphost/types"
	"github.com/tunbase/apphost/visibility"
)

// binding ties one mounted tab adapter to a tunnel. Native components
// never get a binding; the host renders those itself.
type binding struct {
	id        string
	tunnelID  string
	appID     string
	tabKey    string
	container types.Container
	instance  *adapter.Instance
}

// TabStates computes the visibility of every tab the tunnel's App
// declares, in declaration order. Tunnels without a resolvable enabled
// App have no tabs.
func (m *Manager) TabStates(ctx context.Context, t *types.Tunnel) []visibility.TabState {
	app := m.resolveApp(ctx, t)
	if app == nil {
		return nil
	}
	return visibility.ComputeTabStates(app, t)
}

// ActionStates computes visibility and enablement of every action the
// tunnel's App declares, in declaration order
func (m *Manager) ActionStates(ctx context.Context, t *types.Tunnel) []visibility.ActionState {
	app := m.resolveApp(ctx, t)
	if app == nil {
		return nil
	}
	return visibility.ComputeActionStates(app, t)
}

// OpenTab mounts the tab's component into the given container. Native
// components are a no-op: the host renders them without runtime help.
// Opening a tab that is already open for the tunnel remounts it into
// the new container.
func (m *Manager) OpenTab(ctx context.Context, t *types.Tunnel, tabKey string, container types.Container) error {
	if t == nil {
		return fmt.Errorf("tunnel is required")
	}

	app := m.resolveApp(ctx, t)
	if app == nil {
		return fmt.Errorf("tunnel %q has no enabled app", t.ID)
	}

	tab := app.Tab(tabKey)
	if tab == nil {
		return fmt.Errorf("app %q declares no tab %q", app.ID, tabKey)
	}
	return m.mountSlot(ctx, t, app, tabKey, tab.Component, container)
}

// Reserved slot keys for the non-tab UI slots, kept out of the tab key
// space by their dot prefix
const (
	slotConfigForm = ".config_form"
	slotDetailInfo = ".detail_info"
)

// OpenConfigForm mounts the App's configuration form into the container
func (m *Manager) OpenConfigForm(ctx context.Context, t *types.Tunnel, container types.Container) error {
	return m.openSlot(ctx, t, slotConfigForm, container)
}

// OpenDetailInfo mounts the App's detail view into the container
func (m *Manager) OpenDetailInfo(ctx context.Context, t *types.Tunnel, container types.Container) error {
	return m.openSlot(ctx, t, slotDetailInfo, container)
}

// CloseConfigForm unmounts the configuration form, a no-op when closed
func (m *Manager) CloseConfigForm(ctx context.Context, tunnelID string) error {
	return m.CloseTab(ctx, tunnelID, slotConfigForm)
}

// CloseDetailInfo unmounts the detail view, a no-op when closed
func (m *Manager) CloseDetailInfo(ctx context.Context, tunnelID string) error {
	return m.CloseTab(ctx, tunnelID, slotDetailInfo)
}

func (m *Manager) openSlot(ctx context.Context, t *types.Tunnel, slotKey string, container types.Container) error {
	if t == nil {
		return fmt.Errorf("tunnel is required")
	}

	app := m.resolveApp(ctx, t)
	if app == nil {
		return fmt.Errorf("tunnel %q has no enabled app", t.ID)
	}

	var component types.Component
	switch slotKey {
	case slotConfigForm:
		component = app.ConfigForm
	case slotDetailInfo:
		component = app.DetailInfo
	}
	return m.mountSlot(ctx, t, app, slotKey, component, container)
}

// mountSlot drives one component slot through the adapter controller.
// Native and empty slots need no runtime help and short-circuit.
func (m *Manager) mountSlot(ctx context.Context, t *types.Tunnel, app *types.AppDefinition, slotKey string, component types.Component, container types.Container) error {
	switch component.Kind {
	case types.ComponentNative, types.ComponentNone:
		return nil
	case types.ComponentAdapted:
	default:
		return fmt.Errorf("app %q slot %q: unknown component kind", app.ID, slotKey)
	}

	if prev := m.takeBinding(t.ID, slotKey); prev != nil {
		if err := m.adapters.Unmount(ctx, prev.instance); err != nil {
			logger.Errorf(ctx, "unmount previous binding %s: %v", prev.id, err)
		}
		m.collector.AdapterUnmounted(prev.appID)
	}

	inst := adapter.NewInstance(app.ID, component.Adapter)
	if err := m.adapters.Mount(ctx, inst, container, m.tabProps(t)); err != nil {
		return err
	}

	b := &binding{
		id:        nanoid.PrimaryKey(),
		tunnelID:  t.ID,
		appID:     app.ID,
		tabKey:    slotKey,
		container: container,
		instance:  inst,
	}
	m.putBinding(b)
	m.collector.AdapterMounted(app.ID)
	logger.Debugf(ctx, "mounted slot %s/%s for tunnel %s (binding %s)", app.ID, slotKey, t.ID, b.id)
	return nil
}

// UpdateTab pushes a fresh tunnel snapshot to the mounted tab adapter.
// Updating a tab that is not open returns ErrInvalidAdapterState.
func (m *Manager) UpdateTab(ctx context.Context, t *types.Tunnel, tabKey string) error {
	if t == nil {
		return fmt.Errorf("tunnel is required")
	}

	b := m.getBinding(t.ID, tabKey)
	if b == nil {
		return fmt.Errorf("no open tab %q for tunnel %q: %w", tabKey, t.ID, types.ErrInvalidAdapterState)
	}
	return m.adapters.Update(ctx, b.instance, m.tabProps(t))
}

// CloseTab unmounts the tab adapter and drops the binding. Closing a tab
// that is not open is a no-op.
func (m *Manager) CloseTab(ctx context.Context, tunnelID, tabKey string) error {
	b := m.takeBinding(tunnelID, tabKey)
	if b == nil {
		return nil
	}

	err := m.adapters.Unmount(ctx, b.instance)
	m.collector.AdapterUnmounted(b.appID)
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "closed tab %s/%s for tunnel %s", b.appID, tabKey, tunnelID)
	return nil
}

// closeTunnelBindings tears down every binding the tunnel still holds
func (m *Manager) closeTunnelBindings(ctx context.Context, tunnelID string) {
	m.mu.Lock()
	tabs := m.bindings[tunnelID]
	delete(m.bindings, tunnelID)
	m.mu.Unlock()

	for _, b := range tabs {
		if err := m.adapters.Unmount(ctx, b.instance); err != nil {
			logger.Errorf(ctx, "unmount binding %s for tunnel %s: %v", b.id, tunnelID, err)
		}
		m.collector.AdapterUnmounted(b.appID)
	}
}

// unbindApp force-unmounts every adapter the App drives and drops its
// bindings, across all tunnels
func (m *Manager) unbindApp(ctx context.Context, appID string) {
	m.mu.Lock()
	var dropped int
	for tunnelID, tabs := range m.bindings {
		for tabKey, b := range tabs {
			if b.appID != appID {
				continue
			}
			delete(tabs, tabKey)
			dropped++
		}
		if len(tabs) == 0 {
			delete(m.bindings, tunnelID)
		}
	}
	m.mu.Unlock()

	if err := m.adapters.UnmountApp(ctx, appID); err != nil {
		logger.Errorf(ctx, "unmount adapters for app %s: %v", appID, err)
	}
	for i := 0; i < dropped; i++ {
		m.collector.AdapterUnmounted(appID)
	}
}

// tabProps is the property bag handed to tab adapters on mount and update
func (m *Manager) tabProps(t *types.Tunnel) types.Props {
	m.mu.RLock()
	host := m.host
	m.mu.RUnlock()

	return types.Props{
		"tunnel":    t,
		"locale":    host.Locale(),
		"isDark":    host.IsDark(),
		"themeMode": host.ThemeMode(),
	}
}

func (m *Manager) putBinding(b *binding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tabs, ok := m.bindings[b.tunnelID]
	if !ok {
		tabs = make(map[string]*binding)
		m.bindings[b.tunnelID] = tabs
	}
	tabs[b.tabKey] = b
}

func (m *Manager) getBinding(tunnelID, tabKey string) *binding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bindings[tunnelID][tabKey]
}

// takeBinding removes and returns the binding, nil when absent
func (m *Manager) takeBinding(tunnelID, tabKey string) *binding {
	m.mu.Lock()
	defer m.mu.Unlock()
	tabs := m.bindings[tunnelID]
	b, ok := tabs[tabKey]
	if !ok {
		return nil
	}
	delete(tabs, tabKey)
	if len(tabs) == 0 {
		delete(m.bindings, tunnelID)
	}
	return b
}
