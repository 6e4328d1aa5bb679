package types

// TabPredicate reports whether a tab is visible for the given tunnel
// snapshot. Predicates must be pure: no state mutation, safe to call on
// every re-render.
type TabPredicate func(t *Tunnel) bool

// AppTab is a declarative tab entry contributed by an App
type AppTab struct {
	// Key is the tab identity, unique within one App
	Key string `json:"key"`
	// Label is the display label, an i18n key when the host translates it
	Label string `json:"label"`
	// Component is the tab's UI slot
	Component Component `json:"-"`
	// Visible decides whether the tab is shown; nil means always visible
	Visible TabPredicate `json:"-"`
}

// AppAction is a declarative action entry contributed by an App
type AppAction struct {
	// Key is the action identity, unique within one App
	Key string `json:"key"`
	// Label is the display label
	Label string `json:"label"`
	// Icon is an optional host icon name
	Icon string `json:"icon,omitempty"`
	// Visible decides whether the action is shown; nil means always visible
	Visible TabPredicate `json:"-"`
	// Disabled decides whether the action is disabled; nil means enabled
	Disabled TabPredicate `json:"-"`
}

// AppDefinition describes an App: the behavior bundle an extension binds
// to tunnels via Tunnel.AppID.
type AppDefinition struct {
	// ID is the App identity, unique within the runtime's registry
	ID string `json:"id" validate:"required"`
	// Name is the display name
	Name string `json:"name" validate:"required"`
	// ConfigForm is the optional configuration form slot
	ConfigForm Component `json:"-"`
	// DetailInfo is the optional detail view slot
	DetailInfo Component `json:"-"`
	// Tabs are the declared tabs, in declaration order
	Tabs []AppTab `json:"tabs,omitempty"`
	// Actions are the declared actions, in declaration order
	Actions []AppAction `json:"actions,omitempty"`
	// Hooks are the App's lifecycle hooks, may be nil
	Hooks *AppHooks `json:"-"`
}

// Tab returns the tab with the given key, or nil
func (d *AppDefinition) Tab(key string) *AppTab {
	for i := range d.Tabs {
		if d.Tabs[i].Key == key {
			return &d.Tabs[i]
		}
	}
	return nil
}

// Action returns the action with the given key, or nil
func (d *AppDefinition) Action(key string) *AppAction {
	for i := range d.Actions {
		if d.Actions[i].Key == key {
			return &d.Actions[i]
		}
	}
	return nil
}
