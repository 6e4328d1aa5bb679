package visibility

import (
	"github.com/tunbase/apphost/logging/logger"
	"github.com/tunbase/apphost/types"
)

// TabState is the computed render state of one tab
type TabState struct {
	Tab     *types.AppTab
	Visible bool
}

// ActionState is the computed render state of one action
type ActionState struct {
	Action   *types.AppAction
	Visible  bool
	Disabled bool
}

// ComputeTabStates evaluates tab visibility for a tunnel snapshot in
// declaration order. A predicate that panics hides its tab and the
// evaluation continues with the remaining tabs.
func ComputeTabStates(appDef *types.AppDefinition, tunnel *types.Tunnel) []TabState {
	if appDef == nil {
		return nil
	}

	states := make([]TabState, 0, len(appDef.Tabs))
	for i := range appDef.Tabs {
		tab := &appDef.Tabs[i]
		states = append(states, TabState{
			Tab:     tab,
			Visible: evalPredicate(appDef.ID, "tab", tab.Key, tab.Visible, tunnel, true),
		})
	}
	return states
}

// ComputeActionStates evaluates action visibility and enablement for a
// tunnel snapshot in declaration order. A panicking predicate yields
// hidden respectively disabled for that action only.
func ComputeActionStates(appDef *types.AppDefinition, tunnel *types.Tunnel) []ActionState {
	if appDef == nil {
		return nil
	}

	states := make([]ActionState, 0, len(appDef.Actions))
	for i := range appDef.Actions {
		action := &appDef.Actions[i]
		states = append(states, ActionState{
			Action:   action,
			Visible:  evalPredicate(appDef.ID, "action", action.Key, action.Visible, tunnel, true),
			Disabled: evalPredicate(appDef.ID, "action", action.Key, action.Disabled, tunnel, false),
		})
	}
	return states
}

// evalPredicate runs a predicate. nilValue is returned when the
// predicate is absent; a panic yields the opposite (visibility fails to
// hidden, disablement fails to disabled) and is logged as a diagnostic.
func evalPredicate(appID, kind, key string, pred types.TabPredicate, tunnel *types.Tunnel, nilValue bool) (result bool) {
	if pred == nil {
		return nilValue
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(nil, "%s predicate panic in app %s, %s %q: %v", kind, appID, kind, key, r)
			result = !nilValue
		}
	}()

	return pred(tunnel)
}
