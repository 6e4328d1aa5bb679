package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tunbase/apphost/logging/logger"
	"github.com/tunbase/apphost/metrics"
	"github.com/tunbase/apphost/types"
)

// Action names accepted by the pipeline
const (
	ActionStart   = "start"
	ActionStop    = "stop"
	ActionRestart = "restart"
	ActionDelete  = "delete"
)

// Pipeline sequences an App's lifecycle hooks for tunnel actions.
// Dispatches for one tunnel are serialized: a second dispatch waits for
// the in-flight one's after-phase to complete. Dispatches for different
// tunnels may interleave freely.
type Pipeline struct {
	collector *metrics.Collector // may be nil
	locks     sync.Map           // tunnel id -> *sync.Mutex
}

// New creates a pipeline. The collector is optional.
func New(collector *metrics.Collector) *Pipeline {
	return &Pipeline{collector: collector}
}

// lockTunnel serializes dispatches for one tunnel
func (p *Pipeline) lockTunnel(tunnelID string) func() {
	v, _ := p.locks.LoadOrStore(tunnelID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// DispatchStart runs the before/on/after start triple
func (p *Pipeline) DispatchStart(ctx context.Context, appID string, hooks *types.AppHooks, hc *types.HookContext) *types.ActionResult {
	if hooks == nil {
		hooks = &types.AppHooks{}
	}
	defer p.lockTunnel(hc.Tunnel.ID)()
	return p.runTriple(ctx, appID, hc, ActionStart, tripleHooks{
		beforePhase: types.PhaseBeforeStart,
		before:      hooks.OnBeforeStart,
		primaryName: types.PhaseStart,
		primary:     hooks.OnStart,
		afterPhase:  types.PhaseAfterStart,
		after:       hooks.OnAfterStart,
	})
}

// DispatchStop runs the before/on/after stop triple
func (p *Pipeline) DispatchStop(ctx context.Context, appID string, hooks *types.AppHooks, hc *types.HookContext) *types.ActionResult {
	if hooks == nil {
		hooks = &types.AppHooks{}
	}
	defer p.lockTunnel(hc.Tunnel.ID)()
	return p.runTriple(ctx, appID, hc, ActionStop, tripleHooks{
		beforePhase: types.PhaseBeforeStop,
		before:      hooks.OnBeforeStop,
		primaryName: types.PhaseStop,
		primary:     hooks.OnStop,
		afterPhase:  types.PhaseAfterStop,
		after:       hooks.OnAfterStop,
	})
}

// DispatchRestart runs the single restart phase, no before/after
func (p *Pipeline) DispatchRestart(ctx context.Context, appID string, hooks *types.AppHooks, hc *types.HookContext) *types.ActionResult {
	if hooks == nil {
		hooks = &types.AppHooks{}
	}
	defer p.lockTunnel(hc.Tunnel.ID)()

	start := time.Now()
	result, err := safeActionHook(ctx, hooks.OnRestart, hc)
	p.record(appID, types.PhaseRestart, time.Since(start), err)

	if err != nil {
		logger.Errorf(ctx, "restart hook of app %s failed: %v", appID, err)
		result = types.Failed(err.Error())
	} else if result == nil {
		result = types.Succeeded()
	}

	p.recordDispatch(appID, ActionRestart, result.Success, time.Since(start))
	return result
}

// DispatchDelete runs the before-delete gate. It reports whether the
// deletion may proceed; a hook error counts as a veto and is returned.
func (p *Pipeline) DispatchDelete(ctx context.Context, appID string, hooks *types.AppHooks, hc *types.HookContext) (bool, error) {
	if hooks == nil {
		hooks = &types.AppHooks{}
	}
	defer p.lockTunnel(hc.Tunnel.ID)()

	if hooks.OnBeforeDelete == nil {
		return true, nil
	}

	start := time.Now()
	allowed, err := safeGateHook(ctx, hooks.OnBeforeDelete, hc)
	p.record(appID, types.PhaseBeforeDelete, time.Since(start), err)

	if err != nil {
		logger.Errorf(ctx, "before-delete hook of app %s failed: %v", appID, err)
		return false, types.NewHookError(appID, types.PhaseBeforeDelete, err)
	}
	return allowed, nil
}

// Notification is one App's handler for a broadcast phase
type Notification struct {
	AppID   string
	Hook    types.HookFunc
	Context *types.HookContext
}

// Broadcast delivers a fire-and-forget notification to every target.
// A failure in one App's hook never prevents delivery to the others.
func (p *Pipeline) Broadcast(ctx context.Context, phase string, targets []Notification) {
	for _, target := range targets {
		if target.Hook == nil {
			continue
		}

		start := time.Now()
		err := safeHook(ctx, target.Hook, target.Context)
		p.record(target.AppID, phase, time.Since(start), err)

		if err != nil {
			logger.Errorf(ctx, "%s hook of app %s failed: %v", phase, target.AppID, err)
		}
	}
}

// tripleHooks bundles one composite action's three phases
type tripleHooks struct {
	beforePhase string
	before      types.HookFunc
	primaryName string
	primary     types.ActionHookFunc
	afterPhase  string
	after       types.AfterHookFunc
}

// runTriple enforces the strict before -> primary -> after order. An
// aborting before-phase short-circuits the remaining phases. The after
// phase receives the exact result the primary produced; its own failure
// is logged and never alters the already-decided result.
func (p *Pipeline) runTriple(ctx context.Context, appID string, hc *types.HookContext, action string, t tripleHooks) *types.ActionResult {
	dispatchStart := time.Now()

	// Before phase: side-effecting, may abort
	if t.before != nil {
		start := time.Now()
		err := safeHook(ctx, t.before, hc)
		p.record(appID, t.beforePhase, time.Since(start), err)

		if err != nil {
			logger.Errorf(ctx, "%s hook of app %s aborted %s: %v", t.beforePhase, appID, action, err)
			result := types.Failed(err.Error())
			p.recordDispatch(appID, action, false, time.Since(dispatchStart))
			return result
		}
	}

	// Primary phase: its return value becomes the action's result
	var result *types.ActionResult
	if t.primary != nil {
		start := time.Now()
		res, err := safeActionHook(ctx, t.primary, hc)
		p.record(appID, t.primaryName, time.Since(start), err)

		if err != nil {
			logger.Errorf(ctx, "%s hook of app %s failed: %v", t.primaryName, appID, err)
			result = types.Failed(err.Error())
		} else if res != nil {
			result = res
		} else {
			result = types.Succeeded()
		}
	} else {
		result = types.Succeeded()
	}

	// After phase: best-effort, never alters the decided result
	if t.after != nil {
		start := time.Now()
		err := safeAfterHook(ctx, t.after, hc, result)
		p.record(appID, t.afterPhase, time.Since(start), err)

		if err != nil {
			logger.Errorf(ctx, "%s hook of app %s failed (result unchanged): %v", t.afterPhase, appID, err)
		}
	}

	p.recordDispatch(appID, action, result.Success, time.Since(dispatchStart))
	return result
}

func (p *Pipeline) record(appID, phase string, duration time.Duration, err error) {
	if p.collector != nil {
		p.collector.HookInvoked(appID, phase, duration, err)
	}
}

func (p *Pipeline) recordDispatch(appID, action string, success bool, duration time.Duration) {
	if p.collector != nil {
		p.collector.DispatchCompleted(appID, action, success, duration)
	}
}

// safeHook invokes a side-effecting hook, recovering panics into errors
func safeHook(ctx context.Context, fn types.HookFunc, hc *types.HookContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicErr(r)
		}
	}()
	return fn(ctx, hc)
}

// safeActionHook invokes a primary hook
func safeActionHook(ctx context.Context, fn types.ActionHookFunc, hc *types.HookContext) (result *types.ActionResult, err error) {
	if fn == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = panicErr(r)
		}
	}()
	return fn(ctx, hc)
}

// safeAfterHook invokes an after hook
func safeAfterHook(ctx context.Context, fn types.AfterHookFunc, hc *types.HookContext, result *types.ActionResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicErr(r)
		}
	}()
	return fn(ctx, hc, result)
}

// safeGateHook invokes a boolean gate hook
func safeGateHook(ctx context.Context, fn types.GateHookFunc, hc *types.HookContext) (allowed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			allowed = false
			err = panicErr(r)
		}
	}()
	return fn(ctx, hc)
}

func panicErr(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
