package timeout

import (
	"context"
	"fmt"
	"time"

	"github.com/tunbase/apphost/config"
)

// Manager bounds lifecycle script runs and whole action dispatches. The
// hook pipeline itself offers no cancellation of an in-flight hook; this
// is the host-level policy layered above it.
type Manager struct {
	scriptTimeout   time.Duration
	dispatchTimeout time.Duration
}

// NewManager creates a new timeout manager from runtime configuration
func NewManager(cfg *config.Runtime) (*Manager, error) {
	scriptTimeout := 30 * time.Second // default
	if cfg != nil && cfg.ScriptTimeout != "" {
		parsed, err := time.ParseDuration(cfg.ScriptTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid script timeout: %v", err)
		}
		scriptTimeout = parsed
	}

	dispatchTimeout := 120 * time.Second // default
	if cfg != nil && cfg.DispatchTimeout != "" {
		parsed, err := time.ParseDuration(cfg.DispatchTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid dispatch timeout: %v", err)
		}
		dispatchTimeout = parsed
	}

	return &Manager{
		scriptTimeout:   scriptTimeout,
		dispatchTimeout: dispatchTimeout,
	}, nil
}

// WithScriptTimeout executes a lifecycle script with the script timeout
func (tm *Manager) WithScriptTimeout(ctx context.Context, fn func(context.Context) error) error {
	return tm.withTimeout(ctx, tm.scriptTimeout, "script", fn)
}

// WithDispatchTimeout executes a whole dispatch with the dispatch timeout
func (tm *Manager) WithDispatchTimeout(ctx context.Context, fn func(context.Context) error) error {
	return tm.withTimeout(ctx, tm.dispatchTimeout, "dispatch", fn)
}

// withTimeout executes fn with the specified timeout, recovering panics
// into errors
func (tm *Manager) withTimeout(ctx context.Context, timeout time.Duration, operation string, fn func(context.Context) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%s panic: %v", operation, r)
			}
		}()
		done <- fn(timeoutCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-timeoutCtx.Done():
		return fmt.Errorf("%s timeout after %v", operation, timeout)
	}
}
