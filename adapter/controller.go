package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tunbase/apphost/logging/logger"
	"github.com/tunbase/apphost/types"
)

// Instance tracks the mount cycle of one adapter bound to one tab or
// detail view. The controller exclusively owns its mounted state.
type Instance struct {
	id      string
	appID   string
	adapter types.ComponentAdapter

	mu        sync.Mutex
	mounted   bool
	container types.Container
}

// NewInstance wraps an adapter for lifecycle control
func NewInstance(appID string, a types.ComponentAdapter) *Instance {
	return &Instance{
		id:      uuid.NewString(),
		appID:   appID,
		adapter: a,
	}
}

// ID returns the instance identity
func (i *Instance) ID() string { return i.id }

// AppID returns the App the instance belongs to
func (i *Instance) AppID() string { return i.appID }

// Mounted reports whether the instance is currently mounted
func (i *Instance) Mounted() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mounted
}

func (i *Instance) setMounted(container types.Container) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.mounted = true
	i.container = container
}

func (i *Instance) setUnmounted() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.mounted = false
	i.container = nil
}

func (i *Instance) currentContainer() types.Container {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.container
}

// containerState serializes adapter calls for one container
type containerState struct {
	mu      sync.Mutex
	current *Instance
}

// Controller drives mount/update/unmount of adapter instances. At most
// one instance is mounted per container; calls for the same container
// never run concurrently. Container handles must be comparable values,
// the controller uses them as map keys and never inspects them further.
type Controller struct {
	mu         sync.Mutex
	containers map[types.Container]*containerState
}

// NewController creates a new adapter lifecycle controller
func NewController() *Controller {
	return &Controller{
		containers: make(map[types.Container]*containerState),
	}
}

func (c *Controller) containerStateFor(container types.Container) *containerState {
	c.mu.Lock()
	defer c.mu.Unlock()

	cs, ok := c.containers[container]
	if !ok {
		cs = &containerState{}
		c.containers[container] = cs
	}
	return cs
}

// Mount mounts the instance into the container. Mounting an already
// mounted instance fails with ErrInvalidAdapterState. If another
// instance occupies the container it is force-unmounted first.
func (c *Controller) Mount(ctx context.Context, inst *Instance, container types.Container, props types.Props) error {
	if inst == nil {
		return fmt.Errorf("nil adapter instance")
	}

	cs := c.containerStateFor(container)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if inst.Mounted() {
		return fmt.Errorf("mount of instance %s (app %s): %w", inst.id, inst.appID, types.ErrInvalidAdapterState)
	}

	if cs.current != nil && cs.current != inst {
		prev := cs.current
		if err := callAdapter(func() error { return prev.adapter.Unmount() }); err != nil {
			logger.Warnf(ctx, "force unmount of instance %s (app %s) failed: %v", prev.id, prev.appID, err)
		}
		prev.setUnmounted()
		cs.current = nil
	}

	if err := callAdapter(func() error { return inst.adapter.Mount(container, props) }); err != nil {
		return fmt.Errorf("mount adapter for app %s: %w", inst.appID, err)
	}

	inst.setMounted(container)
	cs.current = inst
	return nil
}

// Update forwards new props to a mounted instance. Updating an unmounted
// instance fails with ErrInvalidAdapterState. A failed update leaves the
// instance Mounted; unmount is still guaranteed on teardown.
func (c *Controller) Update(ctx context.Context, inst *Instance, props types.Props) error {
	if inst == nil {
		return fmt.Errorf("nil adapter instance")
	}

	container := inst.currentContainer()
	if container == nil {
		return fmt.Errorf("update of instance %s (app %s): %w", inst.id, inst.appID, types.ErrInvalidAdapterState)
	}

	cs := c.containerStateFor(container)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !inst.Mounted() {
		return fmt.Errorf("update of instance %s (app %s): %w", inst.id, inst.appID, types.ErrInvalidAdapterState)
	}

	if err := callAdapter(func() error { return inst.adapter.Update(props) }); err != nil {
		return fmt.Errorf("update adapter for app %s: %w", inst.appID, err)
	}
	return nil
}

// Unmount releases the instance's container. Unmounting an already
// unmounted instance is a no-op. The adapter's Unmount is always
// attempted, also when a prior update failed.
func (c *Controller) Unmount(ctx context.Context, inst *Instance) error {
	if inst == nil {
		return nil
	}

	container := inst.currentContainer()
	if container == nil {
		return nil
	}

	cs := c.containerStateFor(container)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !inst.Mounted() {
		return nil
	}

	err := callAdapter(func() error { return inst.adapter.Unmount() })

	// The container is released even when the adapter reports an error
	inst.setUnmounted()
	if cs.current == inst {
		cs.current = nil
	}

	if err != nil {
		return fmt.Errorf("unmount adapter for app %s: %w", inst.appID, err)
	}
	return nil
}

// MountedInstance returns the instance currently mounted in the container
func (c *Controller) MountedInstance(container types.Container) *Instance {
	cs := c.containerStateFor(container)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.current
}

// UnmountApp unmounts every instance of the given App, returning the
// first error encountered. Used when a package is deactivated or removed.
func (c *Controller) UnmountApp(ctx context.Context, appID string) error {
	c.mu.Lock()
	states := make([]*containerState, 0, len(c.containers))
	for _, cs := range c.containers {
		states = append(states, cs)
	}
	c.mu.Unlock()

	var targets []*Instance
	for _, cs := range states {
		cs.mu.Lock()
		if cs.current != nil && cs.current.appID == appID {
			targets = append(targets, cs.current)
		}
		cs.mu.Unlock()
	}

	var firstErr error
	for _, inst := range targets {
		if err := c.Unmount(ctx, inst); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// callAdapter invokes an adapter method, recovering panics into errors
func callAdapter(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()
	return fn()
}
