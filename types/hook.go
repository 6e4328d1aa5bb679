package types

import "context"

// Hook phase names, used in hook errors and metrics labels
const (
	PhaseBeforeStart  = "before_start"
	PhaseStart        = "start"
	PhaseAfterStart   = "after_start"
	PhaseBeforeStop   = "before_stop"
	PhaseStop         = "stop"
	PhaseAfterStop    = "after_stop"
	PhaseRestart      = "restart"
	PhaseBeforeDelete = "before_delete"
	PhaseLocaleChange = "locale_change"
	PhaseThemeChange  = "theme_change"
	PhaseInstall      = "install"
	PhaseUninstall    = "uninstall"
	PhaseActivate     = "activate"
	PhaseDeactivate   = "deactivate"
)

// EmitFunc notifies the host asynchronously. Fire-and-forget, best-effort
// delivery, no return value.
type EmitFunc func(event string, args ...any)

// TranslateFunc resolves a message key against the host's i18n subsystem
type TranslateFunc func(key, fallback string) string

// HookContext is the immutable-per-invocation snapshot passed to every
// hook. Its lifetime is exactly one invocation; hooks must not cache it.
type HookContext struct {
	// Tunnel is the tunnel the action applies to
	Tunnel *Tunnel
	// Emit is the host event channel, may be nil
	Emit EmitFunc
	// T is the host i18n translate function
	T TranslateFunc
	// Locale is the host's current locale
	Locale string
	// IsDark reports whether the host theme is dark
	IsDark bool
	// ThemeMode is the host's theme mode, e.g. light, dark, auto
	ThemeMode string
}

// HookFunc is a side-effecting lifecycle hook
type HookFunc func(ctx context.Context, hc *HookContext) error

// ActionHookFunc is a primary hook whose return value becomes the
// action's result
type ActionHookFunc func(ctx context.Context, hc *HookContext) (*ActionResult, error)

// AfterHookFunc receives both the context and the already-decided result.
// Its failure never alters the result.
type AfterHookFunc func(ctx context.Context, hc *HookContext, result *ActionResult) error

// GateHookFunc returns a boolean gate; false vetoes the action
type GateHookFunc func(ctx context.Context, hc *HookContext) (bool, error)

// CustomHookFunc is a host-specific hook, never auto-invoked by the runtime
type CustomHookFunc func(ctx context.Context, hc *HookContext, args ...any) (any, error)

// AppHooks is the sparse set of lifecycle hooks an App may declare. Any
// field may be nil; a nil hook is a no-op that succeeds. Custom carries
// forward-compatible host-specific hooks which the runtime only invokes
// on explicit request, never as part of an action dispatch.
type AppHooks struct {
	OnBeforeStart  HookFunc
	OnStart        ActionHookFunc
	OnAfterStart   AfterHookFunc
	OnBeforeStop   HookFunc
	OnStop         ActionHookFunc
	OnAfterStop    AfterHookFunc
	OnRestart      ActionHookFunc
	OnBeforeDelete GateHookFunc
	OnLocaleChange HookFunc
	OnThemeChange  HookFunc

	Custom map[string]CustomHookFunc
}

// ActionResult is the canonical outcome of a tunnel action
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Succeeded returns a successful result
func Succeeded() *ActionResult {
	return &ActionResult{Success: true}
}

// Failed returns a failed result with the given reason
func Failed(message string) *ActionResult {
	return &ActionResult{Success: false, Message: message}
}
